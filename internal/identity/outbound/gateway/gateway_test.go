package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotification struct {
	err     error
	otps    []event.OTPIssuedMessage
	welcome []event.AccountActivatedMessage
}

func (f *fakeNotification) SendOTP(_ context.Context, msg event.OTPIssuedMessage) error {
	f.otps = append(f.otps, msg)
	return f.err
}

func (f *fakeNotification) SendWelcome(_ context.Context, msg event.AccountActivatedMessage) error {
	f.welcome = append(f.welcome, msg)
	return f.err
}

func TestGateway_SendOTP(t *testing.T) {
	// Arrange
	n := &fakeNotification{}
	g := New(n, instrument.NewNoop())

	// Act
	err := g.SendOTP(context.Background(), entity.OTPDispatch{
		ID:         "otp-1",
		Identifier: "9876543210",
		Channel:    entity.ChannelSMS,
		Purpose:    entity.PurposeRegistration,
		Code:       "654321",
		TTL:        10 * time.Minute,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, n.otps, 1)
	assert.Equal(t, event.OTPIssuedMessage{
		ID:         "otp-1",
		Identifier: "9876543210",
		Channel:    "SMS",
		Purpose:    "REGISTRATION",
		Code:       "654321",
		TTLSeconds: 600,
	}, n.otps[0])
}

func TestGateway_SendWelcomePropagatesError(t *testing.T) {
	// Arrange
	n := &fakeNotification{err: errors.New("smtp down")}
	g := New(n, instrument.NewNoop())

	// Act
	err := g.SendWelcome(context.Background(), entity.WelcomeDispatch{
		UserID:      7,
		Identifier:  "asha@example.com",
		Channel:     entity.ChannelEmail,
		DisplayName: "Asha",
	})

	// Assert
	assert.EqualError(t, err, "smtp down")
	require.Len(t, n.welcome, 1)
	assert.Equal(t, "asha@example.com", n.welcome[0].Recipient)
	assert.Equal(t, "EMAIL", n.welcome[0].Channel)
}
