package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Convergence flips the per-channel verification flags and enables the account
// once both are set. The call that enables it greets the user on every channel.
type Convergence struct {
	users         userStore
	notifier      notifier
	ins           instrument.Instrumentation
	notifyTimeout time.Duration
	welcomeFailed metric.Int64Counter
}

func NewConvergence(users userStore, n notifier, ins instrument.Instrumentation, notifyTimeout time.Duration) *Convergence {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}

	return &Convergence{
		users:         users,
		notifier:      n,
		ins:           ins,
		notifyTimeout: notifyTimeout,
		welcomeFailed: newCounter(ins.Meter("identity.convergence"), "identity.welcome.failed", "Number of welcome notifications that failed"),
	}
}

func (c *Convergence) MarkEmailVerified(ctx context.Context, userID int64) (*entity.Convergence, error) {
	ctx, span := c.ins.Tracer("identity.convergence").Start(ctx, "MarkEmailVerified")
	defer span.End()

	return c.converge(ctx, userID, entity.ChannelEmail, c.users.MarkEmailVerified)
}

func (c *Convergence) MarkMobileVerified(ctx context.Context, userID int64) (*entity.Convergence, error) {
	ctx, span := c.ins.Tracer("identity.convergence").Start(ctx, "MarkMobileVerified")
	defer span.End()

	return c.converge(ctx, userID, entity.ChannelSMS, c.users.MarkMobileVerified)
}

func (c *Convergence) converge(
	ctx context.Context,
	userID int64,
	ch entity.Channel,
	mark func(context.Context, int64) (*entity.Convergence, error),
) (*entity.Convergence, error) {
	res, err := mark(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark channel verified", "user_id", userID, "channel", ch.String(), "error", err)
		return nil, storeErr(err)
	}

	if !res.FlagChanged {
		slog.InfoContext(ctx, "channel already verified", "user_id", userID, "channel", ch.String())
		return res, nil
	}

	if res.Activated {
		slog.InfoContext(ctx, "account activated", "user_id", userID)
		c.welcome(ctx, res.User)
	}

	return res, nil
}

func (c *Convergence) welcome(ctx context.Context, u entity.User) {
	dispatches := []entity.WelcomeDispatch{
		{UserID: u.ID, Identifier: u.Email, Channel: entity.ChannelEmail, DisplayName: u.DisplayName()},
		{UserID: u.ID, Identifier: u.Mobile, Channel: entity.ChannelSMS, DisplayName: u.DisplayName()},
	}

	for _, d := range dispatches {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
		err := c.notifier.SendWelcome(nctx, d)
		cancel()

		if err != nil {
			slog.ErrorContext(ctx, "failed to send welcome", "user_id", u.ID, "channel", d.Channel.String(), "error", err)
			c.welcomeFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", d.Channel.String())))
		}
	}
}
