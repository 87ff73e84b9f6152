package sms

import (
	"context"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMS_SendWithLogDriver(t *testing.T) {
	// Arrange
	s := New(sms.NewLog("+91"), "log", instrument.NewNoop())

	// Act
	resp, err := s.Send(context.Background(), "9876543210", "OTPGate: Your OTP to verify your mobile number is 123456.")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "log", resp.GetString("provider"))
	assert.Equal(t, 200, resp.GetInt("status_code"))
	assert.Equal(t, "logged", resp.GetString("response"))
}

func TestSMS_SendWithoutRecipient(t *testing.T) {
	s := New(sms.NewLog("+91"), "log", instrument.NewNoop())

	resp, err := s.Send(context.Background(), " ", "hello")

	assert.ErrorIs(t, err, sms.ErrNoRecipient)
	assert.Equal(t, 0, resp.GetInt("status_code"))
}
