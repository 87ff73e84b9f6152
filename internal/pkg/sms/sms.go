package sms

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipient is returned for an empty destination number.
var ErrNoRecipient = errors.New("sms: recipient is required")

// Message is a single outbound text.
type Message struct {
	To   string
	Body string
}

// Result is what the provider answered, kept for delivery logs.
type Result struct {
	StatusCode int
	Response   string
}

// SMS sends text messages.
type SMS interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Normalize prefixes a bare national number with countryPrefix. Numbers that
// already start with "+" are returned unchanged apart from trimming.
func Normalize(number, countryPrefix string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "+") || countryPrefix == "" {
		return number
	}

	return countryPrefix + strings.TrimLeft(number, "0")
}
