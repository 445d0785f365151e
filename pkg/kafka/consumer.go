package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Redelivery backoff bounds for messages whose handler failed.
const (
	minRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff = 5 * time.Second
	commitTimeout   = 5 * time.Second
)

// Handler processes a consumed message. Returning an error means the
// failure is transient: the same message is handed back after a backoff and
// its offset is not committed until the handler succeeds. Handlers
// acknowledge messages they can never process by returning nil.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads one topic as part of a consumer group and feeds each
// message to a Handler, in partition order.
type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer for topic in cfg.ConsumerGroup.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	readerCfg := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}
	if cfg.TLS || cfg.SASLEnabled {
		dialer, err := cfg.dialer()
		if err != nil {
			return nil, err
		}
		readerCfg.Dialer = dialer
	}

	return &Consumer{
		reader:  kafkago.NewReader(readerCfg),
		handler: handler,
		logger:  logger,
	}, nil
}

// Start consumes until ctx is canceled, which is not reported as an error.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer starting", "topic", cfg.Topic, "group", cfg.GroupID)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "topic", cfg.Topic)
				return nil
			}
			return fmt.Errorf("kafka fetch from %s: %w", cfg.Topic, err)
		}

		if err := c.handle(ctx, m); err != nil {
			// Only cancellation ends the retry loop.
			c.logger.Info("consumer stopping", "topic", cfg.Topic, "pending_offset", m.Offset)
			return nil
		}
		c.commit(ctx, m)
	}
}

// commit acknowledges a handled message. It outlives a cancellation of ctx
// so a message handled during shutdown is not redelivered; a failed commit
// is logged and the message will be seen again.
func (c *Consumer) commit(ctx context.Context, m kafkago.Message) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(commitCtx, m); err != nil {
		c.logger.Error("kafka commit failed, message will be redelivered",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"error", err,
		)
	}
}

// handle runs the handler until it succeeds or ctx ends.
func (c *Consumer) handle(ctx context.Context, m kafkago.Message) error {
	msg := fromKafkaMessage(m)
	backoff := minRetryBackoff

	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		c.logger.Error("kafka handler failed",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"attempt", attempt,
			"retry_in", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func fromKafkaMessage(m kafkago.Message) Message {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}
