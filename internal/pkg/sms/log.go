package sms

import (
	"context"
	"log/slog"
)

// Log only records that a message would have been sent.
type Log struct {
	countryPrefix string
}

// NewLog returns the log driver.
func NewLog(countryPrefix string) *Log {
	return &Log{countryPrefix: countryPrefix}
}

func (l *Log) Send(ctx context.Context, msg Message) (Result, error) {
	to := Normalize(msg.To, l.countryPrefix)
	if to == "" {
		return Result{}, ErrNoRecipient
	}

	slog.InfoContext(ctx, "sms: message accepted by log driver", "to", to, "length", len(msg.Body))

	return Result{StatusCode: 200, Response: "logged"}, nil
}
