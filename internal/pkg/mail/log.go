package mail

import (
	"context"
	"log/slog"
)

// Log is a Mail that only writes the envelope to slog. It is the
// "log" driver for local runs; bodies are not logged since they carry codes.
type Log struct{}

// NewLog returns a Log mailer.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return ErrSMTPNoRecipients
	}

	slog.InfoContext(ctx, "mail: message accepted by log driver", "to", msg.To, "subject", msg.Subject)

	return nil
}

func (l *Log) Close() error {
	return nil
}
