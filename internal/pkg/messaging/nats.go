package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a messaging implementation backed by core NATS subjects.
type NATS struct {
	conn *nats.Conn
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}

// Publish sends msg to the subject named by topic.
func (n *NATS) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	nmsg := nats.NewMsg(topic)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}
	if len(msg.Key) > 0 {
		nmsg.Header.Set("Nats-Msg-Key", string(msg.Key))
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}
	return nil
}

// Consume subscribes with the queue group from WithGroup, if any.
func (n *NATS) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, co.concurrency)

	sub, err := n.conn.QueueSubscribe(topic, co.group, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // core nats has no redelivery to report to
				_ = deliver(ctx, "nats", handler, &natsMessage{msg: m, at: time.Now()})
			}
		})
	}

	<-ctx.Done()
	derr := sub.Drain()
	close(msgCh)
	wg.Wait()

	return errors.Join(ctx.Err(), derr)
}

type natsMessage struct {
	once

	msg *nats.Msg
	at  time.Time
}

func (m *natsMessage) ID() string               { return m.msg.Header.Get("Nats-Msg-Id") }
func (m *natsMessage) Topic() string            { return m.msg.Subject }
func (m *natsMessage) Key() []byte              { return []byte(m.msg.Header.Get("Nats-Msg-Key")) }
func (m *natsMessage) Body() []byte             { return m.msg.Data }
func (m *natsMessage) Header(key string) string { return m.msg.Header.Get(key) }
func (m *natsMessage) Timestamp() time.Time     { return m.at }

func (m *natsMessage) ack(context.Context) error {
	if !m.first() {
		return nil
	}
	return ignoreNoReply(m.msg.Ack())
}

func (m *natsMessage) nack(context.Context) error {
	if !m.first() {
		return nil
	}
	return ignoreNoReply(m.msg.Nak())
}

func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
