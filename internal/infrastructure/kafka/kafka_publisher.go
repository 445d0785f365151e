// Package kafka adapts the lending use cases to Kafka: domain events go out
// on one topic and payment instructions come in on another.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/bibbank/installment-lending/internal/domain/event"
	pkgkafka "github.com/bibbank/installment-lending/pkg/kafka"
)

// MessageProducer is the subset of pkgkafka.Producer used by the publisher.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// KafkaEventPublisher implements port.EventPublisher. All events go to one
// topic keyed by aggregate ID, so consumers see a loan's events in order.
type KafkaEventPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaEventPublisher creates a publisher writing to topic.
func NewKafkaEventPublisher(producer MessageProducer, topic string, logger *slog.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends events as one batch. Nothing is sent if any event fails to
// encode.
func (p *KafkaEventPublisher) Publish(ctx context.Context, events ...event.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, len(events))
	for i, evt := range events {
		msg, err := toMessage(ctx, evt)
		if err != nil {
			return err
		}
		messages[i] = msg
		p.logger.DebugContext(ctx, "publishing domain event",
			"event_type", evt.EventType(),
			"loan_id", evt.AggregateID(),
			"topic", p.topic,
		)
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(messages), p.topic, err)
	}
	return nil
}

// toMessage encodes evt as JSON. Headers carry the routing fields and the
// caller's trace context.
func toMessage(ctx context.Context, evt event.DomainEvent) (pkgkafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("marshal event %s: %w", evt.EventType(), err)
	}

	headers := map[string]string{
		"event_type":     evt.EventType(),
		"event_id":       evt.EventID(),
		"aggregate_type": evt.AggregateType(),
		"content_type":   "application/json",
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	return pkgkafka.Message{Key: []byte(evt.AggregateID()), Value: payload, Headers: headers}, nil
}
