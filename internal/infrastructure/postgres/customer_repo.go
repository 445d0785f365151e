package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/internal/domain/model"
	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

const customerColumns = `id, name, surname, credit_limit, used_credit_limit`

// CustomerRepo implements port.CustomerRepository and port.CreditLedger.
// Ledger operations lock the customer row, so callers must run them inside
// a Transactor unit of work to hold the lock past the statement.
type CustomerRepo struct {
	pool *pgxpool.Pool
}

// NewCustomerRepo creates a new PostgreSQL-backed customer repository.
func NewCustomerRepo(pool *pgxpool.Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

func (r *CustomerRepo) db(ctx context.Context) pkgpostgres.Querier {
	return pkgpostgres.QuerierFromContext(ctx, r.pool)
}

// FindByID retrieves a customer.
func (r *CustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Customer, error) {
	return r.find(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

// Reserve adds amount to the customer's used credit.
func (r *CustomerRepo) Reserve(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error {
	return r.adjust(ctx, customerID, func(c model.Customer) (model.Customer, error) {
		return c.Reserve(amount)
	})
}

// Release hands amount back to the customer's available credit.
func (r *CustomerRepo) Release(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error {
	return r.adjust(ctx, customerID, func(c model.Customer) (model.Customer, error) {
		return c.Release(amount)
	})
}

func (r *CustomerRepo) adjust(ctx context.Context, id uuid.UUID, fn func(model.Customer) (model.Customer, error)) error {
	customer, err := r.find(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}

	updated, err := fn(customer)
	if err != nil {
		return err
	}

	_, err = r.db(ctx).Exec(ctx,
		`UPDATE customers SET used_credit_limit = $2, updated_at = NOW() WHERE id = $1`,
		id, updated.UsedCreditLimit(),
	)
	if err != nil {
		return fmt.Errorf("update used credit: %w", err)
	}
	return nil
}

func (r *CustomerRepo) find(ctx context.Context, query string, id uuid.UUID) (model.Customer, error) {
	var (
		name, surname     string
		creditLimit, used decimal.Decimal
		scannedID         uuid.UUID
	)
	err := r.db(ctx).QueryRow(ctx, query, id).Scan(&scannedID, &name, &surname, &creditLimit, &used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, apperror.CustomerNotFound(id)
		}
		return model.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return model.ReconstructCustomer(scannedID, name, surname, creditLimit, used), nil
}
