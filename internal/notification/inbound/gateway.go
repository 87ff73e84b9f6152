package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

// Gateway is the in-process entry point other modules call when they do not
// go through the broker.
type Gateway struct {
	uc uc
}

func NewGateway(uc uc) *Gateway {
	return &Gateway{uc: uc}
}

func (g *Gateway) SendOTP(ctx context.Context, msg event.OTPIssuedMessage) error {
	return g.uc.SendOTP(ctx, otpInput(msg))
}

func (g *Gateway) SendWelcome(ctx context.Context, msg event.AccountActivatedMessage) error {
	return g.uc.SendWelcome(ctx, welcomeInput(msg))
}

func otpInput(msg event.OTPIssuedMessage) usecase.SendOTPInput {
	return usecase.SendOTPInput{
		ID:         msg.ID,
		Recipient:  msg.Identifier,
		Channel:    msg.Channel,
		Purpose:    msg.Purpose,
		Code:       msg.Code,
		TTLSeconds: msg.TTLSeconds,
	}
}

func welcomeInput(msg event.AccountActivatedMessage) usecase.SendWelcomeInput {
	return usecase.SendWelcomeInput{
		UserID:      msg.UserID,
		Recipient:   msg.Recipient,
		Channel:     msg.Channel,
		DisplayName: msg.DisplayName,
	}
}
