package usecase

import (
	"context"
	"errors"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

var (
	// ErrInvalidCode is returned when an OTP does not verify.
	ErrInvalidCode = errors.New("identity: invalid or expired otp")
	// ErrThrottled is returned by resend inside the cooldown window.
	ErrThrottled = errors.New("identity: otp resend throttled")
	// ErrDelivery wraps a failed OTP dispatch. The record may still be stored.
	ErrDelivery = errors.New("identity: otp delivery failed")
	// ErrTransport wraps a timed out store or notifier call.
	ErrTransport = errors.New("identity: downstream timed out")
)

func errInvalidCode() error {
	return goerror.NewBusinessCause(ErrInvalidCode, "Invalid or expired OTP", goerror.CodeBadRequest)
}

func errThrottled() error {
	return goerror.NewBusinessCause(ErrThrottled, "Please wait before requesting a new OTP", goerror.CodeTooManyRequest)
}

func errDelivery(err error) error {
	return goerror.NewTransport(errors.Join(ErrDelivery, err), "Failed to send OTP. Please try again later.", goerror.CodeUnavailable)
}

func errTransport(err error) error {
	return goerror.NewTransport(errors.Join(ErrTransport, err), "Service timed out. Please try again.", goerror.CodeTimeout)
}

// storeErr turns a deadline into a TransportError and anything else into a server error.
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errTransport(err)
	}

	return goerror.NewServer(err)
}
