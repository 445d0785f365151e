package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/installment-lending/pkg/events"
	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

// OutboxRepo implements events.OutboxRepository. Every method joins the
// transaction carried by ctx, if any.
type OutboxRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewOutboxRepo creates a new PostgreSQL-backed outbox.
func NewOutboxRepo(pool *pgxpool.Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool, now: time.Now}
}

func (r *OutboxRepo) db(ctx context.Context) pkgpostgres.Querier {
	return pkgpostgres.QuerierFromContext(ctx, r.pool)
}

// Store appends entries to the outbox.
func (r *OutboxRepo) Store(ctx context.Context, entries []events.OutboxEntry) error {
	db := r.db(ctx)
	for _, e := range entries {
		_, err := db.Exec(ctx, `
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Payload, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox event %s: %w", e.EventType, err)
		}
	}
	return nil
}

// FetchUnpublished locks and returns the oldest unpublished entries. A
// second relay blocks on the locked rows until the first commits, so
// entries leave the outbox in the order they were stored.
func (r *OutboxRepo) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT id::text, aggregate_id, aggregate_type, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY position
		LIMIT $1
		FOR UPDATE`,
		batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the entries with ids as published.
func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db(ctx).Exec(ctx, `
		UPDATE outbox
		SET published_at = $2
		WHERE id IN (SELECT unnest($1::text[])::uuid)`,
		ids, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark %d outbox entries published: %w", len(ids), err)
	}
	return nil
}
