package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrSMTPNoRecipients = errors.New("no recipients provided")
	// ErrSMTPNoSender is returned when neither the message nor the config has a sender.
	ErrSMTPNoSender = errors.New("no sender provided")
)

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
	// SSL forces implicit TLS. Port 465 turns it on regardless.
	SSL bool
	// InsecureSkipVerify is meant for local mail catchers only.
	InsecureSkipVerify bool
}

// SMTP sends mail with gomail, one connection per message.
type SMTP struct {
	dialer      *gomail.Dialer
	defaultFrom string
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.SSL {
		d.SSL = true
	}
	if cfg.InsecureSkipVerify {
		//nolint:gosec // opt-in for local mail catchers
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}

	return &SMTP{dialer: d, defaultFrom: cfg.From}, nil
}

// Send builds a MIME message and delivers it. gomail has no context
// support, so the dial runs in its own goroutine and Send returns early
// when ctx is done; the abandoned dial finishes in the background.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp: send: %w", ctx.Err())
	}
}

func (s *SMTP) build(msg Message) (*gomail.Message, error) {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return nil, ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	if from == "" {
		return nil, ErrSMTPNoSender
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	if len(msg.To) > 0 {
		m.SetHeader("To", msg.To...)
	}
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	return m, nil
}

// Close is a no-op; connections are not pooled.
func (s *SMTP) Close() error {
	return nil
}
