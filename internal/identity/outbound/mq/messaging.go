package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

// Messaging hands OTP and welcome deliveries to the notification consumers
// over the broker.
type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) SendOTP(ctx context.Context, d entity.OTPDispatch) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "SendOTP")
	defer span.End()

	return m.publish(ctx, span, event.OTPIssuedDestination, d.Identifier, event.OTPIssuedMessage{
		ID:         d.ID,
		Identifier: d.Identifier,
		Channel:    d.Channel.String(),
		Purpose:    d.Purpose.String(),
		Code:       d.Code,
		TTLSeconds: int(d.TTL.Seconds()),
	})
}

func (m *Messaging) SendWelcome(ctx context.Context, d entity.WelcomeDispatch) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "SendWelcome")
	defer span.End()

	return m.publish(ctx, span, event.AccountActivatedDestination, d.Identifier, event.AccountActivatedMessage{
		UserID:      d.UserID,
		Channel:     d.Channel.String(),
		Recipient:   d.Identifier,
		DisplayName: d.DisplayName,
	})
}

func (m *Messaging) publish(ctx context.Context, span trace.Span, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, topic, messaging.OutgoingMessage{
		Key:     []byte(key),
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
