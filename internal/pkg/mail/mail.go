package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email.
type Message struct {
	// From overrides the configured sender when set.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mail sends messages through some provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
