package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedDevice(t *testing.T) {
	// Arrange
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCache(client, instrument.NewNoop())
	ctx := context.Background()

	// Act
	before, err1 := c.IsTrustedDevice(ctx, 42, "fp")
	err2 := c.TrustDevice(ctx, 42, "fp", time.Hour)
	after, err3 := c.IsTrustedDevice(ctx, 42, "fp")
	other, err4 := c.IsTrustedDevice(ctx, 43, "fp")
	mr.FastForward(2 * time.Hour)
	expired, err5 := c.IsTrustedDevice(ctx, 42, "fp")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	require.NoError(t, err4)
	require.NoError(t, err5)
	assert.False(t, before)
	assert.True(t, after)
	assert.False(t, other)
	assert.False(t, expired)
	assert.False(t, mr.Exists("login:device:42:fp"))
}

func TestTrustedDeviceRedisDown(t *testing.T) {
	// Arrange
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCache(client, instrument.NewNoop())
	mr.Close()

	// Act
	ok, err := c.IsTrustedDevice(context.Background(), 1, "fp")

	// Assert
	assert.Error(t, err)
	assert.False(t, ok)
}
