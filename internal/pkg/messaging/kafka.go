package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a messaging implementation backed by kafka-go. Nacked messages
// are left uncommitted so the group rereads them after a rebalance.
type Kafka struct {
	cfg    KafkaConfig
	writer *kafka.Writer
}

// NewKafka builds a writer shared by every topic.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	transport := &kafka.Transport{}
	if cfg.Dialer != nil {
		transport.TLS = cfg.Dialer.TLS
		transport.SASL = cfg.Dialer.SASLMechanism
	}

	return &Kafka{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			Transport:              transport,
		},
	}, nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Publish writes msg to topic. The key picks the partition.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	kmsg := kafka.Message{Topic: topic, Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for k, v := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return nil
}

// Consume joins the consumer group from WithGroup.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  co.group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.cfg.Dialer,
	})

	msgCh := make(chan kafka.Message)
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				if err := deliver(ctx, "kafka", handler, &kafkaMessage{reader: reader, msg: m}); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "failed to commit kafka message", "topic", m.Topic, "offset", m.Offset, "error", err)
				}
			}
		})
	}

	var fetchErr error
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			fetchErr = err
			break
		}
		msgCh <- m
	}
	close(msgCh)
	wg.Wait()

	closeErr := reader.Close()
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return errors.Join(fetchErr, closeErr)
	}
	return errors.Join(fmt.Errorf("messaging: kafka fetch: %w", fetchErr), closeErr)
}

type kafkaMessage struct {
	once

	reader *kafka.Reader
	msg    kafka.Message
}

func (m *kafkaMessage) ID() string {
	return fmt.Sprintf("%s/%d/%d", m.msg.Topic, m.msg.Partition, m.msg.Offset)
}
func (m *kafkaMessage) Topic() string        { return m.msg.Topic }
func (m *kafkaMessage) Key() []byte          { return m.msg.Key }
func (m *kafkaMessage) Body() []byte         { return m.msg.Value }
func (m *kafkaMessage) Timestamp() time.Time { return m.msg.Time }

func (m *kafkaMessage) Header(key string) string {
	for _, h := range m.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (m *kafkaMessage) ack(ctx context.Context) error {
	if !m.first() {
		return nil
	}
	return m.reader.CommitMessages(ctx, m.msg)
}

func (m *kafkaMessage) nack(context.Context) error {
	m.first()
	return nil
}
