package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/inbound"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/cache"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/gateway"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otpcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const (
	NotifierModeDirect = "direct"
	NotifierModeQueue  = "queue"
)

var ErrNotifierUnavailable = errors.New("identity: notifier mode has no backing dependency")

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    redis.UniversalClient      `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Enforcer     *casbin.Enforcer           `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Limiter      *router.RateLimiter        `validate:"required"`
	Idempotency  idempotency.Idempotency    `validate:"required"`
	Messaging    messaging.Messaging        // queue mode
	Notification gateway.Notification       // direct mode
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	UUID         uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Password     hash.Hash                  `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	JWT          jwt.JWT                    `validate:"required"`
}

type notifier interface {
	SendOTP(ctx context.Context, in entity.OTPDispatch) error
	SendWelcome(ctx context.Context, in entity.WelcomeDispatch) error
}

// New wires the identity module onto the router and starts the sweep job.
func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbIdentity := db.NewDB(dep.DBConn, dep.Instrument)
	cacheIdentity := cache.NewCache(dep.CacheConn, dep.Instrument)

	var sender notifier
	switch strings.ToLower(dep.Config.GetString("modules.identity.notifier.mode")) {
	case NotifierModeQueue:
		if dep.Messaging == nil {
			return ErrNotifierUnavailable
		}
		sender = mq.NewMessaging(dep.Messaging, dep.Instrument)
	default:
		if dep.Notification == nil {
			return ErrNotifierUnavailable
		}
		sender = gateway.New(dep.Notification, dep.Instrument)
	}

	uc := usecase.New(usecase.Dependency{
		OTPStore:    dbIdentity,
		UserStore:   dbIdentity,
		Notifier:    sender,
		DeviceCache: cacheIdentity,
		Idempotency: dep.Idempotency,
		Generator: otpcode.New(
			dep.Config.GetString("modules.identity.otp.alphabet"),
			dep.Config.GetInt("modules.identity.otp.length"),
		),
		Validator:  dep.Validator,
		Config:     dep.Config,
		Password:   dep.Password,
		HMAC:       dep.HMAC,
		UID:        dep.UID,
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		JWT:        dep.JWT,
		Instrument: dep.Instrument,
		Enforcer:   dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Limiter)

	job := inbound.NewSweepJob(uc.Engine(), dep.Clock, dep.Goroutine,
		dep.Config.GetMinute("modules.identity.otp.sweep_interval_minutes"))
	job.Start(dep.Ctx)

	return nil
}
