package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQProducerAddrRequired is returned when publishing without an nsqd address.
	ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")
	// ErrNSQConsumerAddrsRequired is returned when no nsqd/lookupd addresses are configured.
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq consumer nsqd/lookupd addresses are required")
)

// NSQConfig configures the NSQ driver.
type NSQConfig struct {
	ProducerAddr string
	NSQDAddrs    []string
	LookupdAddrs []string
	// RequeueDelay is passed to Requeue on nack.
	RequeueDelay time.Duration
}

// NSQ is a messaging implementation backed by NSQ. Headers are not carried.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer
}

// NewNSQ builds a producer when ProducerAddr is set. Consumers are created per Consume.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	n := &NSQ{cfg: cfg}
	if cfg.ProducerAddr == "" {
		return n, nil
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)
	n.producer = p

	return n, nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

// Publish sends msg.Body to topic.
func (n *NSQ) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if n.producer == nil {
		return ErrNSQProducerAddrRequired
	}

	if err := n.producer.Publish(topic, msg.Body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}
	return nil
}

// Consume reads topic on the channel named by WithGroup.
func (n *NSQ) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}
	if len(n.cfg.NSQDAddrs) == 0 && len(n.cfg.LookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	ccfg := nsq.NewConfig()
	ccfg.MaxInFlight = co.concurrency

	consumer, err := nsq.NewConsumer(topic, co.group, ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return deliver(ctx, "nsq", handler, &nsqMessage{topic: topic, msg: m, delay: n.cfg.RequeueDelay})
	}), co.concurrency)

	if len(n.cfg.LookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.LookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.NSQDAddrs)
	}
	if err != nil {
		consumer.Stop()
		<-consumer.StopChan
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

type nsqMessage struct {
	once

	topic string
	msg   *nsq.Message
	delay time.Duration
}

func (m *nsqMessage) ID() string           { return fmt.Sprintf("%x", m.msg.ID) }
func (m *nsqMessage) Topic() string        { return m.topic }
func (m *nsqMessage) Key() []byte          { return nil }
func (m *nsqMessage) Body() []byte         { return m.msg.Body }
func (m *nsqMessage) Header(string) string { return "" }
func (m *nsqMessage) Timestamp() time.Time { return time.Unix(0, m.msg.Timestamp) }

func (m *nsqMessage) ack(context.Context) error {
	if m.first() {
		m.msg.Finish()
	}
	return nil
}

func (m *nsqMessage) nack(context.Context) error {
	if m.first() {
		m.msg.Requeue(m.delay)
	}
	return nil
}
