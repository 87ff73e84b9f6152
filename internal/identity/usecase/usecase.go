package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/otpcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type otpStore interface {
	// ReplaceOTP deletes every record of the tuple and inserts otp in one transaction.
	ReplaceOTP(ctx context.Context, otp entity.OTP) error
	FindActiveOTP(ctx context.Context, t entity.Tuple, codeHash string) (*entity.OTP, error)
	FindLatestOTP(ctx context.Context, t entity.Tuple) (*entity.OTP, error)
	// MarkOTPUsed reports false when another caller already used the record.
	MarkOTPUsed(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteOTPTuple(ctx context.Context, t entity.Tuple) error
	DeleteExpiredOTP(ctx context.Context, before time.Time) (int64, error)
}

type userStore interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByMobile(ctx context.Context, mobile string) (*entity.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*entity.User, error)
	GetUserTaken(ctx context.Context, username, email, mobile string) (*entity.UserTaken, error)

	CreateUser(ctx context.Context, in entity.NewUser) error
	MarkEmailVerified(ctx context.Context, id int64) (*entity.Convergence, error)
	MarkMobileVerified(ctx context.Context, id int64) (*entity.Convergence, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type notifier interface {
	SendOTP(ctx context.Context, in entity.OTPDispatch) error
	SendWelcome(ctx context.Context, in entity.WelcomeDispatch) error
}

type deviceCache interface {
	IsTrustedDevice(ctx context.Context, userID int64, fingerprint string) (bool, error)
	TrustDevice(ctx context.Context, userID int64, fingerprint string, ttl time.Duration) error
}

type Usecase struct {
	engine      *OTPEngine
	convergence *Convergence
	users       userStore
	devices     deviceCache
	validator   validator.Validator
	cfg         config.Config
	password    hash.Hash
	hmac        hash.Hash
	uid         uid.NumberID
	clock       clock.Clocker
	jwt         jwt.JWT
	ins         instrument.Instrumentation
	enforcer    *casbin.Enforcer
}

type Dependency struct {
	OTPStore    otpStore
	UserStore   userStore
	Notifier    notifier
	DeviceCache deviceCache
	Idempotency idempotency.Idempotency
	Generator   otpcode.Generator
	Validator   validator.Validator
	Config      config.Config
	Password    hash.Hash
	HMAC        hash.Hash
	UID         uid.NumberID
	UUID        uid.StringID
	Clock       clock.Clocker
	JWT         jwt.JWT
	Instrument  instrument.Instrumentation
	Enforcer    *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	engine := NewOTPEngine(EngineDependency{
		Store:       dep.OTPStore,
		Notifier:    dep.Notifier,
		Generator:   dep.Generator,
		HMAC:        dep.HMAC,
		UUID:        dep.UUID,
		Clock:       dep.Clock,
		Idempotency: dep.Idempotency,
		Instrument:  dep.Instrument,
		Config:      EngineConfigFrom(dep.Config),
	})

	return &Usecase{
		engine:      engine,
		convergence: NewConvergence(dep.UserStore, dep.Notifier, dep.Instrument, EngineConfigFrom(dep.Config).NotifyTimeout),
		users:       dep.UserStore,
		devices:     dep.DeviceCache,
		validator:   dep.Validator,
		cfg:         dep.Config,
		password:    dep.Password,
		hmac:        dep.HMAC,
		uid:         dep.UID,
		clock:       dep.Clock,
		jwt:         dep.JWT,
		ins:         dep.Instrument,
		enforcer:    dep.Enforcer,
	}
}

// Engine exposes the OTP engine to the sweep job.
func (s *Usecase) Engine() *OTPEngine {
	return s.engine
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// ensureCanLogin applies the account checks in the order the login flow reports them.
func (s *Usecase) ensureCanLogin(ctx context.Context, user *entity.User) error {
	if !user.Enabled {
		slog.WarnContext(ctx, "user account is not verified", "user_id", user.ID)
		return goerror.NewBusiness("Account not verified. Please verify your email and mobile number.", goerror.CodeForbidden)
	}

	if user.Locked {
		slog.WarnContext(ctx, "user account is locked", "user_id", user.ID)
		return goerror.NewBusiness("Account is locked. Please contact support.", goerror.CodeForbidden)
	}

	return nil
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(strconv.FormatInt(clm.UserID, 10), obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
