package entity

import (
	"strings"
	"time"
)

// Tuple identifies one OTP slot. At most one active record exists per tuple.
type Tuple struct {
	Identifier string
	Channel    Channel
	Purpose    Purpose
}

// NewTuple normalizes the identifier: emails are lower-cased, everything is trimmed.
func NewTuple(identifier string, ch Channel, p Purpose) Tuple {
	identifier = strings.TrimSpace(identifier)
	if ch == ChannelEmail {
		identifier = strings.ToLower(identifier)
	}

	return Tuple{Identifier: identifier, Channel: ch, Purpose: p}
}

// Key is a stable string form used for locks and log correlation.
func (t Tuple) Key() string {
	return t.Identifier + "|" + t.Channel.String() + "|" + t.Purpose.String()
}

type OTP struct {
	ID         string
	Identifier string
	Channel    Channel
	Purpose    Purpose
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
}

func (o OTP) Tuple() Tuple {
	return Tuple{Identifier: o.Identifier, Channel: o.Channel, Purpose: o.Purpose}
}

// IsExpired is true once now reaches ExpiresAt.
func (o OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o OTP) State(now time.Time) OTPState {
	switch {
	case o.Used:
		return OTPStateUsed
	case o.IsExpired(now):
		return OTPStateExpired
	default:
		return OTPStateActive
	}
}

// OTPDispatch is what the notifier needs to deliver a code.
// Code is the plain value and must not be logged.
type OTPDispatch struct {
	ID         string
	Identifier string
	Channel    Channel
	Purpose    Purpose
	Code       string
	TTL        time.Duration
}

// WelcomeDispatch asks the notifier to greet a newly activated account.
type WelcomeDispatch struct {
	UserID      int64
	Identifier  string
	Channel     Channel
	DisplayName string
}

// OTPStatus is the admin view of a tuple.
type OTPStatus struct {
	Tuple     Tuple
	State     OTPState
	CreatedAt *time.Time
	ExpiresAt *time.Time
}
