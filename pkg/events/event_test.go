package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := "5f1c8a34-0f3e-4f43-9d2c-3b6f0a8e7d11"
	occurred := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	event := NewBaseEvent("lending.loan.originated", aggregateID, "Loan", occurred)

	if event.EventID() == "" {
		t.Error("expected non-empty event ID")
	}

	if event.EventType() != "lending.loan.originated" {
		t.Errorf("expected event type %q, got %q", "lending.loan.originated", event.EventType())
	}

	if event.AggregateID() != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, event.AggregateID())
	}

	if event.AggregateType() != "Loan" {
		t.Errorf("expected aggregate type %q, got %q", "Loan", event.AggregateType())
	}

	if !event.OccurredAt().Equal(occurred) {
		t.Errorf("expected occurredAt %v, got %v", occurred, event.OccurredAt())
	}

	if event.OccurredAt().Location() != time.UTC {
		t.Errorf("expected occurredAt in UTC, got %v", event.OccurredAt().Location())
	}
}

func TestNewBaseEventDefaultsTime(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent("Event", "agg", "Aggregate", time.Time{})
	after := time.Now().UTC()

	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestNewBaseEventUniqueIDs(t *testing.T) {
	a := NewBaseEvent("Event", "agg", "Aggregate", time.Time{})
	b := NewBaseEvent("Event", "agg", "Aggregate", time.Time{})

	if a.EventID() == b.EventID() {
		t.Error("expected distinct event IDs")
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestBaseEventJSONEnvelope(t *testing.T) {
	type embedding struct {
		BaseEvent
		Amount string `json:"amount"`
	}

	payload, err := json.Marshal(embedding{
		BaseEvent: NewBaseEvent("lending.loan.paid_off", "agg-1", "Loan", time.Time{}),
		Amount:    "10.00",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("expected valid JSON payload, got error: %v", err)
	}

	for _, key := range []string{"event_id", "event_type", "aggregate_id", "aggregate_type", "occurred_at", "amount"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("expected key %q in payload %s", key, payload)
		}
	}
}

func TestNewOutboxEntry(t *testing.T) {
	event := NewBaseEvent("lending.loan.originated", "agg-789", "Loan", time.Time{})

	entry, err := NewOutboxEntry(event)
	if err != nil {
		t.Fatalf("NewOutboxEntry: %v", err)
	}

	if entry.ID != event.EventID() {
		t.Errorf("expected outbox ID %v, got %v", event.EventID(), entry.ID)
	}

	if entry.AggregateID != "agg-789" || entry.AggregateType != "Loan" {
		t.Errorf("expected aggregate Loan/agg-789, got %s/%s", entry.AggregateType, entry.AggregateID)
	}

	if entry.EventType != "lending.loan.originated" {
		t.Errorf("expected event type %q, got %q", "lending.loan.originated", entry.EventType)
	}

	if !entry.CreatedAt.Equal(event.OccurredAt()) {
		t.Errorf("expected created at %v, got %v", event.OccurredAt(), entry.CreatedAt)
	}

	if entry.PublishedAt != nil {
		t.Errorf("expected unpublished entry, got published at %v", entry.PublishedAt)
	}
}

func TestOutboxEntryEventReplaysPayload(t *testing.T) {
	entry, err := NewOutboxEntry(NewBaseEvent("lending.loan.paid_off", "agg-1", "Loan", time.Time{}))
	if err != nil {
		t.Fatalf("NewOutboxEntry: %v", err)
	}

	event := entry.Event()
	if event.EventID() != entry.ID || event.EventType() != entry.EventType || event.AggregateID() != entry.AggregateID {
		t.Errorf("event %s/%s/%s does not match entry", event.EventID(), event.EventType(), event.AggregateID())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != string(entry.Payload) {
		t.Errorf("expected stored payload %s, got %s", entry.Payload, payload)
	}
}
