package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

const trustedDevicePrefix = "login:device:"

// Cache remembers devices that passed login verification.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func deviceKey(userID int64, fingerprint string) string {
	return trustedDevicePrefix + strconv.FormatInt(userID, 10) + ":" + fingerprint
}

func (c *Cache) IsTrustedDevice(ctx context.Context, userID int64, fingerprint string) (bool, error) {
	ctx, span := c.ins.Tracer("identity.outbound.cache").Start(ctx, "IsTrustedDevice")
	defer span.End()

	err := c.client.Get(ctx, deviceKey(userID, fingerprint)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return true, nil
}

func (c *Cache) TrustDevice(ctx context.Context, userID int64, fingerprint string, ttl time.Duration) error {
	ctx, span := c.ins.Tracer("identity.outbound.cache").Start(ctx, "TrustDevice")
	defer span.End()

	if err := c.client.Set(ctx, deviceKey(userID, fingerprint), "1", ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
