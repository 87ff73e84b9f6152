package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otpcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultOTPTTL        = 5 * time.Minute
	defaultResendCooling = 60 * time.Second
	defaultStoreTimeout  = 3 * time.Second
	defaultNotifyTimeout = 10 * time.Second

	replaceRetryDelay = 20 * time.Millisecond
)

// EngineConfig holds the OTP lifecycle knobs. Zero values fall back to defaults.
type EngineConfig struct {
	TTL                      time.Duration
	ResendCooldown           time.Duration
	StoreTimeout             time.Duration
	NotifyTimeout            time.Duration
	DiscardOnDeliveryFailure bool
}

// EngineConfigFrom reads modules.identity.otp.*.
func EngineConfigFrom(cfg config.Config) EngineConfig {
	return EngineConfig{
		TTL:                      cfg.GetMinute("modules.identity.otp.ttl_minutes"),
		ResendCooldown:           cfg.GetSecond("modules.identity.otp.resend_cooldown_seconds"),
		StoreTimeout:             cfg.GetMillisecond("modules.identity.otp.store_timeout_ms"),
		NotifyTimeout:            cfg.GetMillisecond("modules.identity.otp.notify_timeout_ms"),
		DiscardOnDeliveryFailure: cfg.GetBool("modules.identity.otp.discard_on_delivery_failure"),
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.TTL <= 0 {
		c.TTL = defaultOTPTTL
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = defaultResendCooling
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = defaultStoreTimeout
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = defaultNotifyTimeout
	}
	return c
}

type EngineDependency struct {
	Store       otpStore
	Notifier    notifier
	Generator   otpcode.Generator
	HMAC        hash.Hash
	UUID        uid.StringID
	Clock       clock.Clocker
	Idempotency idempotency.Idempotency
	Instrument  instrument.Instrumentation
	Config      EngineConfig
}

// OTPEngine owns the lifecycle of one-time passcodes: issue, verify, resend and sweep.
type OTPEngine struct {
	store     otpStore
	notifier  notifier
	generator otpcode.Generator
	hmac      hash.Hash
	uuid      uid.StringID
	clock     clock.Clocker
	idemp     idempotency.Idempotency
	ins       instrument.Instrumentation
	cfg       EngineConfig

	issued   metric.Int64Counter
	verified metric.Int64Counter
	swept    metric.Int64Counter
}

func NewOTPEngine(dep EngineDependency) *OTPEngine {
	meter := dep.Instrument.Meter("identity.otp")

	return &OTPEngine{
		store:     dep.Store,
		notifier:  dep.Notifier,
		generator: dep.Generator,
		hmac:      dep.HMAC,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		idemp:     dep.Idempotency,
		ins:       dep.Instrument,
		cfg:       dep.Config.withDefaults(),
		issued:    newCounter(meter, "otp.issued", "Number of OTPs issued"),
		verified:  newCounter(meter, "otp.verified", "Number of OTP verification attempts"),
		swept:     newCounter(meter, "otp.sweep.deleted", "Number of expired OTPs deleted"),
	}
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to create counter", "name", name, "error", err)
		c, _ = metricnoop.Meter{}.Int64Counter(name)
	}
	return c
}

func (e *OTPEngine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.ins.Tracer("identity.otp").Start(ctx, name)
}

// TTL is the configured validity window.
func (e *OTPEngine) TTL() time.Duration {
	return e.cfg.TTL
}

// GenerateAndSend replaces any record of the tuple with a fresh code and dispatches it.
// The plain code is returned for callers that need to audit it; it never leaves the process otherwise.
func (e *OTPEngine) GenerateAndSend(ctx context.Context, t entity.Tuple) (string, error) {
	ctx, span := e.startSpan(ctx, "GenerateAndSend")
	defer span.End()

	code, err := e.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "tuple", t.Key(), "error", err)
		return "", goerror.NewServer(err)
	}

	codeHash, err := e.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp", "tuple", t.Key(), "error", err)
		return "", goerror.NewServer(err)
	}

	now := e.clock.Now()
	rec := entity.OTP{
		ID:         e.uuid.Generate(),
		Identifier: t.Identifier,
		Channel:    t.Channel,
		Purpose:    t.Purpose,
		CodeHash:   string(codeHash),
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.cfg.TTL),
	}

	// a concurrent replace of the same tuple surfaces as a unique violation; one retry wins over it.
	backoff := retry.WithMaxRetries(1, retry.NewConstant(replaceRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
		defer cancel()

		if err := e.store.ReplaceOTP(sctx, rec); err != nil {
			if errors.Is(err, goerror.ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store otp", "tuple", t.Key(), "error", err)
		return "", storeErr(err)
	}

	nctx, cancel := context.WithTimeout(ctx, e.cfg.NotifyTimeout)
	defer cancel()

	err = e.notifier.SendOTP(nctx, entity.OTPDispatch{
		ID:         rec.ID,
		Identifier: t.Identifier,
		Channel:    t.Channel,
		Purpose:    t.Purpose,
		Code:       code,
		TTL:        e.cfg.TTL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send otp", "tuple", t.Key(), "otp_id", rec.ID, "error", err)
		e.discard(ctx, t)

		if errors.Is(err, context.DeadlineExceeded) {
			return "", errTransport(err)
		}
		return "", errDelivery(err)
	}

	e.issued.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", t.Channel.String()),
		attribute.String("purpose", t.Purpose.String()),
	))

	return code, nil
}

func (e *OTPEngine) discard(ctx context.Context, t entity.Tuple) {
	if !e.cfg.DiscardOnDeliveryFailure {
		return
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
	defer cancel()

	if err := e.store.DeleteOTPTuple(sctx, t); err != nil {
		slog.ErrorContext(ctx, "failed to discard undelivered otp", "tuple", t.Key(), "error", err)
	}
}

// Verify consumes the active record matching code. It reports false for a wrong,
// expired or already used code; error is reserved for store failures.
func (e *OTPEngine) Verify(ctx context.Context, t entity.Tuple, code string) (ok bool, err error) {
	ctx, span := e.startSpan(ctx, "Verify")
	defer span.End()

	defer func() {
		result := "invalid"
		switch {
		case err != nil:
			result = "error"
		case ok:
			result = "valid"
		}
		e.verified.Add(ctx, 1, metric.WithAttributes(
			attribute.String("purpose", t.Purpose.String()),
			attribute.String("result", result),
		))
	}()

	if code == "" {
		return false, nil
	}

	codeHash, err := e.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp", "tuple", t.Key(), "error", err)
		return false, goerror.NewServer(err)
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	rec, err := e.store.FindActiveOTP(sctx, t, string(codeHash))
	if errors.Is(err, goerror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to find otp", "tuple", t.Key(), "error", err)
		return false, storeErr(err)
	}

	now := e.clock.Now()
	if rec.IsExpired(now) {
		slog.InfoContext(ctx, "otp expired", "tuple", t.Key(), "otp_id", rec.ID)
		return false, nil
	}

	marked, err := e.store.MarkOTPUsed(sctx, rec.ID, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark otp used", "otp_id", rec.ID, "error", err)
		return false, storeErr(err)
	}

	return marked, nil
}

// IsActive reports whether the tuple holds an unused, unexpired record.
func (e *OTPEngine) IsActive(ctx context.Context, t entity.Tuple) (bool, error) {
	st, err := e.Status(ctx, t)
	if err != nil {
		return false, err
	}

	return st.State == entity.OTPStateActive, nil
}

// Status describes the latest unused record of the tuple.
func (e *OTPEngine) Status(ctx context.Context, t entity.Tuple) (*entity.OTPStatus, error) {
	ctx, span := e.startSpan(ctx, "Status")
	defer span.End()

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	rec, err := e.store.FindLatestOTP(sctx, t)
	if errors.Is(err, goerror.ErrNotFound) {
		return &entity.OTPStatus{Tuple: t, State: entity.OTPStateNone}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to find latest otp", "tuple", t.Key(), "error", err)
		return nil, storeErr(err)
	}

	return &entity.OTPStatus{
		Tuple:     t,
		State:     rec.State(e.clock.Now()),
		CreatedAt: &rec.CreatedAt,
		ExpiresAt: &rec.ExpiresAt,
	}, nil
}

// Resend issues a new code unless the latest one is younger than the cooldown.
func (e *OTPEngine) Resend(ctx context.Context, t entity.Tuple) error {
	ctx, span := e.startSpan(ctx, "Resend")
	defer span.End()

	ran := false
	fn := func(ctx context.Context) error {
		ran = true
		return e.resend(ctx, t)
	}

	err := e.idemp.Exec(ctx, "otp:resend:"+t.Key(), fn,
		idempotency.WithLockDuration(e.cfg.StoreTimeout+e.cfg.NotifyTimeout),
		idempotency.WithStateTTL(e.cfg.ResendCooldown),
		idempotency.WithReleaseOnError(),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress),
		errors.Is(err, idempotency.ErrAlreadyCompleted),
		errors.Is(err, idempotency.ErrAlreadyFailed):
		slog.InfoContext(ctx, "otp resend throttled by lock", "tuple", t.Key())
		return errThrottled()
	case !ran:
		// lock store is down, the record timestamps still enforce the cooldown
		slog.WarnContext(ctx, "failed to acquire resend lock", "tuple", t.Key(), "error", err)
		return e.resend(ctx, t)
	default:
		return err
	}
}

func (e *OTPEngine) resend(ctx context.Context, t entity.Tuple) error {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	latest, err := e.store.FindLatestOTP(sctx, t)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to find latest otp", "tuple", t.Key(), "error", err)
		return storeErr(err)
	}

	if latest != nil && e.clock.Now().Sub(latest.CreatedAt) < e.cfg.ResendCooldown {
		slog.InfoContext(ctx, "otp resend inside cooldown", "tuple", t.Key(), "otp_id", latest.ID)
		return errThrottled()
	}

	_, err = e.GenerateAndSend(ctx, t)
	return err
}

// SweepExpired deletes every record whose expiry is before now.
func (e *OTPEngine) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := e.startSpan(ctx, "SweepExpired")
	defer span.End()

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	n, err := e.store.DeleteExpiredOTP(sctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete expired otp", "before", now, "error", err)
		return 0, storeErr(err)
	}

	e.swept.Add(ctx, n)
	if n > 0 {
		slog.InfoContext(ctx, "expired otp swept", "deleted", n)
	}

	return n, nil
}
