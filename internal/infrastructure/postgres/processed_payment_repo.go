package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

// ProcessedPaymentRepo implements port.ProcessedPayments.
type ProcessedPaymentRepo struct {
	pool *pgxpool.Pool
}

// NewProcessedPaymentRepo creates a new PostgreSQL-backed payment log.
func NewProcessedPaymentRepo(pool *pgxpool.Pool) *ProcessedPaymentRepo {
	return &ProcessedPaymentRepo{pool: pool}
}

// Record stores paymentID and reports whether it was new. A concurrent
// insert of the same id waits for the other transaction and then reports
// false.
func (r *ProcessedPaymentRepo) Record(ctx context.Context, paymentID string, loanID uuid.UUID, at time.Time) (bool, error) {
	tag, err := pkgpostgres.QuerierFromContext(ctx, r.pool).Exec(ctx, `
		INSERT INTO processed_payments (payment_id, loan_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (payment_id) DO NOTHING`,
		paymentID, loanID, at,
	)
	if err != nil {
		return false, fmt.Errorf("record payment %s: %w", paymentID, err)
	}
	return tag.RowsAffected() == 1, nil
}
