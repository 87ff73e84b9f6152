package messaging

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

var errMemoryQueueFull = errors.New("messaging: memory queue full, redelivery dropped")

// Memory is an in-process broker. Each group receives every message once;
// consumers within a group compete. Nacked messages are redelivered up to
// MaxAttempts times.
type Memory struct {
	maxAttempts int
	buffer      int

	mu     sync.Mutex
	seq    uint64
	groups map[string]map[string]chan *memoryMessage
	closed bool
}

// MemoryConfig configures the memory broker.
type MemoryConfig struct {
	// Buffer is the per-group queue size. Defaults to 256.
	Buffer int
	// MaxAttempts bounds redelivery of nacked messages. Defaults to 3.
	MaxAttempts int
}

// NewMemory builds an in-process broker.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Memory{
		maxAttempts: cfg.MaxAttempts,
		buffer:      cfg.Buffer,
		groups:      make(map[string]map[string]chan *memoryMessage),
	}
}

// Close stops accepting publishes. Running consumers exit with their context.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Publish fans the message out to every group subscribed to topic.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.seq++
	id := strconv.FormatUint(m.seq, 10)
	queues := make([]chan *memoryMessage, 0, len(m.groups[topic]))
	for _, q := range m.groups[topic] {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	now := time.Now()
	for _, q := range queues {
		mm := &memoryMessage{broker: m, queue: q, id: id, topic: topic, out: msg, at: now, attempt: 1}
		select {
		case q <- mm:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Consume registers the group (default "default") on topic and blocks.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		co.group = "default"
	}

	queue, err := m.queue(topic, co.group)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case mm := <-queue:
					//nolint:errcheck // settle errors only mean the context ended
					_ = deliver(ctx, "memory", handler, mm)
				}
			}
		})
	}

	wg.Wait()
	return ctx.Err()
}

func (m *Memory) queue(topic, group string) (chan *memoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.groups[topic] == nil {
		m.groups[topic] = make(map[string]chan *memoryMessage)
	}
	q, ok := m.groups[topic][group]
	if !ok {
		q = make(chan *memoryMessage, m.buffer)
		m.groups[topic][group] = q
	}
	return q, nil
}

type memoryMessage struct {
	once

	broker  *Memory
	queue   chan *memoryMessage
	id      string
	topic   string
	out     OutgoingMessage
	at      time.Time
	attempt int
}

func (m *memoryMessage) ID() string               { return m.id }
func (m *memoryMessage) Topic() string            { return m.topic }
func (m *memoryMessage) Key() []byte              { return m.out.Key }
func (m *memoryMessage) Body() []byte             { return m.out.Body }
func (m *memoryMessage) Header(key string) string { return m.out.Headers[key] }
func (m *memoryMessage) Timestamp() time.Time     { return m.at }

func (m *memoryMessage) ack(context.Context) error {
	m.first()
	return nil
}

func (m *memoryMessage) nack(ctx context.Context) error {
	if !m.first() || m.attempt >= m.broker.maxAttempts {
		return nil
	}

	retry := &memoryMessage{
		broker: m.broker, queue: m.queue, id: m.id, topic: m.topic,
		out: m.out, at: m.at, attempt: m.attempt + 1,
	}
	select {
	case m.queue <- retry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errMemoryQueueFull
	}
}
