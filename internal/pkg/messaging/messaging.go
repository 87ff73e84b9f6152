package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrTopicRequired is returned when the destination or source is empty.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned by drivers that need WithGroup.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("messaging: client closed")
)

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer blocks delivering messages from topic to handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	// Key is used for partitioning (Kafka) and ordering (Pub/Sub).
	Key []byte
	// Body is the message payload.
	Body []byte
	// Headers are string attributes. NSQ drops them.
	Headers map[string]string
}

// Message is a received message.
type Message interface {
	ID() string
	Topic() string
	Key() []byte
	Body() []byte
	Header(key string) string
	Timestamp() time.Time
}

// ConsumeOption configures Consume.
type ConsumeOption func(*consumeOptions)

type consumeOptions struct {
	concurrency int
	group       string
}

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	return co
}

// WithConcurrency sets how many handler goroutines process messages in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithGroup names the load-balancing group. It maps to the Kafka consumer
// group, the NSQ channel, the NATS queue group and the Pub/Sub subscription.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

func validateConsume(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
