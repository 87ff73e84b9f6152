package entity

import (
	"errors"
	"strings"
)

var (
	ErrChannelUnknown = errors.New("identity: otp channel is unknown")
	ErrPurposeUnknown = errors.New("identity: otp purpose is unknown")
)

// Channel is the transport an OTP is delivered over.
type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "EMAIL"
	case ChannelSMS:
		return "SMS"
	default:
		return "UNKNOWN"
	}
}

func (c Channel) IsUnknown() bool {
	return c != ChannelEmail && c != ChannelSMS
}

// ParseChannel accepts EMAIL or SMS in any case.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EMAIL":
		return ChannelEmail, nil
	case "SMS":
		return ChannelSMS, nil
	default:
		return ChannelUnknown, ErrChannelUnknown
	}
}

// Purpose is the flow an OTP gates.
type Purpose int16

const (
	PurposeUnknown           Purpose = 0
	PurposeRegistration      Purpose = 1
	PurposeForgotPassword    Purpose = 2
	PurposeLoginVerification Purpose = 3
)

func (p Purpose) String() string {
	switch p {
	case PurposeRegistration:
		return "REGISTRATION"
	case PurposeForgotPassword:
		return "FORGOT_PASSWORD"
	case PurposeLoginVerification:
		return "LOGIN_VERIFICATION"
	default:
		return "UNKNOWN"
	}
}

func (p Purpose) IsUnknown() bool {
	switch p {
	case PurposeRegistration, PurposeForgotPassword, PurposeLoginVerification:
		return false
	default:
		return true
	}
}

// ParsePurpose accepts the purpose name in any case.
func ParsePurpose(s string) (Purpose, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REGISTRATION":
		return PurposeRegistration, nil
	case "FORGOT_PASSWORD":
		return PurposeForgotPassword, nil
	case "LOGIN_VERIFICATION":
		return PurposeLoginVerification, nil
	default:
		return PurposeUnknown, ErrPurposeUnknown
	}
}

// OTPState is the lifecycle state of one OTP slot.
// NONE and SUPERSEDED have no stored record.
type OTPState int16

const (
	OTPStateNone       OTPState = 0
	OTPStateActive     OTPState = 1
	OTPStateUsed       OTPState = 2
	OTPStateExpired    OTPState = 3
	OTPStateSuperseded OTPState = 4
)

func (s OTPState) String() string {
	switch s {
	case OTPStateActive:
		return "ACTIVE"
	case OTPStateUsed:
		return "USED"
	case OTPStateExpired:
		return "EXPIRED"
	case OTPStateSuperseded:
		return "SUPERSEDED"
	default:
		return "NONE"
	}
}
