package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// OutboxEntry is a domain event stored in the outbox table, written in the
// same transaction as the aggregate that raised it.
type OutboxEntry struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEntry creates an OutboxEntry from a DomainEvent. The payload is
// the JSON form of the event itself.
func NewOutboxEntry(event DomainEvent) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// Event returns the entry as a DomainEvent whose JSON form is the stored
// payload, so a relay can hand it to any event publisher.
func (e OutboxEntry) Event() DomainEvent {
	return storedEvent{entry: e}
}

// OutboxRepository is the port for outbox persistence.
type OutboxRepository interface {
	Store(ctx context.Context, entries []OutboxEntry) error
	// FetchUnpublished returns up to batchSize unpublished entries in the
	// order they were stored.
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string) error
}

type storedEvent struct {
	entry OutboxEntry
}

func (s storedEvent) EventID() string       { return s.entry.ID }
func (s storedEvent) EventType() string     { return s.entry.EventType }
func (s storedEvent) AggregateID() string   { return s.entry.AggregateID }
func (s storedEvent) AggregateType() string { return s.entry.AggregateType }
func (s storedEvent) OccurredAt() time.Time { return s.entry.CreatedAt }

func (s storedEvent) MarshalJSON() ([]byte, error) {
	return s.entry.Payload, nil
}
