package entity

import (
	"strings"
)

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

// ChannelFromString accepts EMAIL or SMS in any case.
func ChannelFromString(raw string) Channel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EMAIL":
		return ChannelEmail
	case "SMS":
		return ChannelSMS
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	default:
		return "unknown"
	}
}

type Kind int16

const (
	KindUnknown Kind = 0
	KindOTP     Kind = 1
	KindWelcome Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindOTP:
		return "otp"
	case KindWelcome:
		return "welcome"
	default:
		return "unknown"
	}
}

type DeliveryStatus int16

const (
	DeliveryStatusUnknown DeliveryStatus = 0
	DeliveryStatusQueued  DeliveryStatus = 1
	DeliveryStatusSent    DeliveryStatus = 3
	DeliveryStatusFailed  DeliveryStatus = 4
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryStatusQueued:
		return "queued"
	case DeliveryStatusSent:
		return "sent"
	case DeliveryStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Purpose mirrors the flow that asked for an OTP.
type Purpose string

const (
	PurposeRegistration      Purpose = "REGISTRATION"
	PurposeForgotPassword    Purpose = "FORGOT_PASSWORD"
	PurposeLoginVerification Purpose = "LOGIN_VERIFICATION"
)

func PurposeFromString(raw string) Purpose {
	return Purpose(strings.ToUpper(strings.TrimSpace(raw)))
}

func (p Purpose) String() string {
	return string(p)
}
