package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when ProjectID is missing.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub driver.
type PubSubConfig struct {
	ProjectID     string
	ClientOptions []option.ClientOption
}

// PubSub is a messaging implementation backed by Google Pub/Sub.
// Consume reads the subscription named by WithGroup, or topic+"-sub".
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSub creates the client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}

	return &PubSub{client: c, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Close stops publishers and closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	p.publishers = map[string]*pubsub.Publisher{}
	p.mu.Unlock()

	return p.client.Close()
}

// Publish waits for the server-assigned id before returning.
func (p *PubSub) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	res := p.publisher(topic).Publish(ctx, &pubsub.Message{
		Data:        msg.Body,
		Attributes:  msg.Headers,
		OrderingKey: string(msg.Key),
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return nil
}

// Consume blocks in Receive until ctx is done.
func (p *PubSub) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	subscription := co.group
	if subscription == "" {
		subscription = topic + "-sub"
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.concurrency

	err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		//nolint:errcheck // ack and nack do not fail in the pubsub client
		_ = deliver(ctx, "pubsub", handler, &pubSubMessage{topic: topic, msg: m})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("messaging: pubsub receive: %w", err)
	}
	return ctx.Err()
}

func (p *PubSub) publisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pub, ok := p.publishers[topic]; ok {
		return pub
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub
}

type pubSubMessage struct {
	once

	topic string
	msg   *pubsub.Message
}

func (m *pubSubMessage) ID() string               { return m.msg.ID }
func (m *pubSubMessage) Topic() string            { return m.topic }
func (m *pubSubMessage) Key() []byte              { return []byte(m.msg.OrderingKey) }
func (m *pubSubMessage) Body() []byte             { return m.msg.Data }
func (m *pubSubMessage) Header(key string) string { return m.msg.Attributes[key] }
func (m *pubSubMessage) Timestamp() time.Time     { return m.msg.PublishTime }

func (m *pubSubMessage) ack(context.Context) error {
	if m.first() {
		m.msg.Ack()
	}
	return nil
}

func (m *pubSubMessage) nack(context.Context) error {
	if m.first() {
		m.msg.Nack()
	}
	return nil
}
