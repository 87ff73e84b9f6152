package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic string
	msg   messaging.OutgoingMessage
}

type capturePublisher struct {
	err  error
	sent []published
}

func (c *capturePublisher) Publish(_ context.Context, topic string, msg messaging.OutgoingMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{topic: topic, msg: msg})
	return nil
}

func TestMessaging_SendOTP(t *testing.T) {
	// Arrange
	pub := &capturePublisher{}
	m := NewMessaging(pub, instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "cid-1")

	// Act
	err := m.SendOTP(ctx, entity.OTPDispatch{
		ID:         "0190f0aa-0000-7000-8000-000000000001",
		Identifier: "asha@example.com",
		Channel:    entity.ChannelEmail,
		Purpose:    entity.PurposeForgotPassword,
		Code:       "123456",
		TTL:        5 * time.Minute,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, event.OTPIssuedDestination, pub.sent[0].topic)
	assert.Equal(t, []byte("asha@example.com"), pub.sent[0].msg.Key)
	assert.Equal(t, "cid-1", pub.sent[0].msg.Headers["cID"])

	var got event.OTPIssuedMessage
	require.NoError(t, json.Unmarshal(pub.sent[0].msg.Body, &got))
	assert.Equal(t, event.OTPIssuedMessage{
		ID:         "0190f0aa-0000-7000-8000-000000000001",
		Identifier: "asha@example.com",
		Channel:    "EMAIL",
		Purpose:    "FORGOT_PASSWORD",
		Code:       "123456",
		TTLSeconds: 300,
	}, got)
}

func TestMessaging_SendWelcome(t *testing.T) {
	// Arrange
	pub := &capturePublisher{}
	m := NewMessaging(pub, instrument.NewNoop())

	// Act
	err := m.SendWelcome(context.Background(), entity.WelcomeDispatch{
		UserID:      1849205713,
		Identifier:  "9876543210",
		Channel:     entity.ChannelSMS,
		DisplayName: "Asha",
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, event.AccountActivatedDestination, pub.sent[0].topic)
	assert.JSONEq(t,
		`{"user_id":"1849205713","channel":"SMS","recipient":"9876543210","display_name":"Asha"}`,
		string(pub.sent[0].msg.Body),
	)
}

func TestMessaging_PublishError(t *testing.T) {
	pub := &capturePublisher{err: messaging.ErrClosed}
	m := NewMessaging(pub, instrument.NewNoop())

	err := m.SendOTP(context.Background(), entity.OTPDispatch{Identifier: "9876543210", Channel: entity.ChannelSMS})

	assert.True(t, errors.Is(err, messaging.ErrClosed))
}
