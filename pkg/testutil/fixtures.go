package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Fixed UUIDs for deterministic testing
var (
	TestCustomerID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestCustomerID2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	TestLoanID      = uuid.MustParse("00000000-0000-0000-0000-000000000100")
)

// SeedCustomer inserts a customer row with the given credit limit and
// used credit.
func SeedCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id uuid.UUID, limit, used decimal.Decimal) {
	t.Helper()

	_, err := pool.Exec(ctx,
		`INSERT INTO customers (id, name, surname, credit_limit, used_credit_limit) VALUES ($1, $2, $3, $4, $5)`,
		id, "Test", "Customer", limit, used,
	)
	if err != nil {
		t.Fatalf("failed to seed customer %s: %v", id, err)
	}
}
