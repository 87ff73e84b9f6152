package gateway

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

// Notification is the in-process side of the notification module.
type Notification interface {
	SendOTP(ctx context.Context, msg event.OTPIssuedMessage) error
	SendWelcome(ctx context.Context, msg event.AccountActivatedMessage) error
}

// Gateway calls the notification module directly, so delivery errors reach
// the caller synchronously.
type Gateway struct {
	notification Notification
	ins          instrument.Instrumentation
}

func New(n Notification, ins instrument.Instrumentation) *Gateway {
	return &Gateway{notification: n, ins: ins}
}

func (g *Gateway) SendOTP(ctx context.Context, d entity.OTPDispatch) error {
	ctx, span := g.ins.Tracer("identity.outbound.gateway").Start(ctx, "SendOTP")
	defer span.End()

	return g.notification.SendOTP(ctx, event.OTPIssuedMessage{
		ID:         d.ID,
		Identifier: d.Identifier,
		Channel:    d.Channel.String(),
		Purpose:    d.Purpose.String(),
		Code:       d.Code,
		TTLSeconds: int(d.TTL.Seconds()),
	})
}

func (g *Gateway) SendWelcome(ctx context.Context, d entity.WelcomeDispatch) error {
	ctx, span := g.ins.Tracer("identity.outbound.gateway").Start(ctx, "SendWelcome")
	defer span.End()

	return g.notification.SendWelcome(ctx, event.AccountActivatedMessage{
		UserID:      d.UserID,
		Channel:     d.Channel.String(),
		Recipient:   d.Identifier,
		DisplayName: d.DisplayName,
	})
}
