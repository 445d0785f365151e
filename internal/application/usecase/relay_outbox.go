package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/installment-lending/internal/domain/event"
	"github.com/bibbank/installment-lending/internal/domain/port"
)

const defaultOutboxBatchSize = 100

// RelayOutboxUseCase moves committed domain events from the outbox to the
// event publisher. Delivery is at least once: a batch published but not
// marked is published again, and consumers deduplicate on event_id.
type RelayOutboxUseCase struct {
	outbox    port.OutboxRepository
	publisher port.EventPublisher
	tx        port.Transactor
	batchSize int
	logger    *slog.Logger
}

// NewRelayOutboxUseCase wires dependencies. A non-positive batchSize
// defaults to 100.
func NewRelayOutboxUseCase(
	outbox port.OutboxRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	batchSize int,
	logger *slog.Logger,
) *RelayOutboxUseCase {
	if batchSize <= 0 {
		batchSize = defaultOutboxBatchSize
	}
	return &RelayOutboxUseCase{
		outbox:    outbox,
		publisher: publisher,
		tx:        tx,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Execute relays one batch and returns how many events it published. The
// batch stays locked while it is published, and a failed publish leaves it
// in the outbox for the next run.
func (uc *RelayOutboxUseCase) Execute(ctx context.Context) (int, error) {
	var relayed int
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entries, err := uc.outbox.FetchUnpublished(ctx, uc.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		events := make([]event.DomainEvent, len(entries))
		ids := make([]string, len(entries))
		for i, e := range entries {
			events[i] = e.Event()
			ids[i] = e.ID
		}

		if err := uc.publisher.Publish(ctx, events...); err != nil {
			return fmt.Errorf("publish outbox events: %w", err)
		}
		if err := uc.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return relayed, nil
}

// Run relays until ctx is canceled. A full batch is followed at once by the
// next; otherwise the relay sleeps for interval.
func (uc *RelayOutboxUseCase) Run(ctx context.Context, interval time.Duration) {
	uc.logger.InfoContext(ctx, "outbox relay starting", "interval", interval, "batch_size", uc.batchSize)
	for {
		n, err := uc.Execute(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			uc.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		case n > 0:
			uc.logger.DebugContext(ctx, "outbox events relayed", "count", n)
		}
		if err == nil && n == uc.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			uc.logger.InfoContext(ctx, "outbox relay stopping")
			return
		case <-time.After(interval):
		}
	}
}
