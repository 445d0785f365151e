package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/pkg/events"
	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

// ErrOptimisticLock is returned by Save when the stored loan version no
// longer matches the one the update was based on.
var ErrOptimisticLock = errors.New("optimistic locking conflict on loan")

const loanColumns = `id, customer_id, principal, interest_rate, paid, version, created_at, updated_at`

// LoanRepo implements port.LoanRepository.
type LoanRepo struct {
	pool   *pgxpool.Pool
	outbox *OutboxRepo
}

// NewLoanRepo creates a new PostgreSQL-backed loan repository.
func NewLoanRepo(pool *pgxpool.Pool) *LoanRepo {
	return &LoanRepo{pool: pool, outbox: NewOutboxRepo(pool)}
}

func (r *LoanRepo) db(ctx context.Context) pkgpostgres.Querier {
	return pkgpostgres.QuerierFromContext(ctx, r.pool)
}

// Save inserts a new loan with its schedule, or writes back the settled
// installments of an existing one. Loans at version 1 are new; later
// versions update the row only if it is still at the previous version.
// The loan's domain events go to the outbox in the same transaction.
func (r *LoanRepo) Save(ctx context.Context, loan model.Loan) error {
	var err error
	if loan.Version() <= 1 {
		err = r.insert(ctx, loan)
	} else {
		err = r.update(ctx, loan)
	}
	if err != nil {
		return err
	}
	return r.writeOutbox(ctx, loan)
}

func (r *LoanRepo) writeOutbox(ctx context.Context, loan model.Loan) error {
	entries := make([]events.OutboxEntry, 0, len(loan.DomainEvents()))
	for _, evt := range loan.DomainEvents() {
		entry, err := events.NewOutboxEntry(evt)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := r.outbox.Store(ctx, entries); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}

func (r *LoanRepo) insert(ctx context.Context, loan model.Loan) error {
	db := r.db(ctx)

	_, err := db.Exec(ctx, `
		INSERT INTO loans (
			id, customer_id, principal, interest_rate, installment_count,
			paid, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		loan.ID(), loan.CustomerID(), loan.Principal(), loan.InterestRate(), loan.InstallmentCount(),
		loan.Paid(), loan.Version(), loan.CreatedAt(), loan.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	for _, inst := range loan.Installments() {
		_, err := db.Exec(ctx, `
			INSERT INTO installments (
				id, loan_id, sequence, amount, paid_amount, due_date, payment_date, paid
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inst.ID, inst.LoanID, inst.Sequence, inst.Amount, inst.PaidAmount,
			inst.DueDate, inst.PaymentDate, inst.Paid,
		)
		if err != nil {
			return fmt.Errorf("insert installment %d: %w", inst.Sequence, err)
		}
	}
	return nil
}

func (r *LoanRepo) update(ctx context.Context, loan model.Loan) error {
	db := r.db(ctx)

	tag, err := db.Exec(ctx, `
		UPDATE loans
		SET paid = $2, version = $3, updated_at = $4
		WHERE id = $1 AND version = $5`,
		loan.ID(), loan.Paid(), loan.Version(), loan.UpdatedAt(), loan.Version()-1,
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}

	for _, inst := range loan.Installments() {
		if !inst.Paid {
			continue
		}
		_, err := db.Exec(ctx, `
			UPDATE installments
			SET paid_amount = $3, payment_date = $4, paid = TRUE
			WHERE id = $1 AND loan_id = $2 AND NOT paid`,
			inst.ID, inst.LoanID, inst.PaidAmount, inst.PaymentDate,
		)
		if err != nil {
			return fmt.Errorf("update installment %d: %w", inst.Sequence, err)
		}
	}
	return nil
}

// FindByID retrieves a loan and its installments.
func (r *LoanRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	return r.findOne(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves a loan and locks its row until the
// transaction carried by ctx ends.
func (r *LoanRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	return r.findOne(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
}

// FindByCustomerID retrieves all loans of a customer, oldest first.
func (r *LoanRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Loan, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE customer_id = $1 ORDER BY created_at, id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}

	// Drain the cursor before loading installments: a transaction runs one
	// query at a time.
	var headers []loanRow
	for rows.Next() {
		h, err := scanLoanRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		headers = append(headers, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}

	loans := make([]model.Loan, 0, len(headers))
	for _, h := range headers {
		installments, err := r.loadInstallments(ctx, h.id)
		if err != nil {
			return nil, err
		}
		loans = append(loans, h.toModel(installments))
	}
	return loans, nil
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

type loanRow struct {
	id, customerID       uuid.UUID
	principal, rate      decimal.Decimal
	paid                 bool
	version              int
	createdAt, updatedAt time.Time
}

func (h loanRow) toModel(installments []model.Installment) model.Loan {
	return model.ReconstructLoan(
		h.id, h.customerID, h.principal, h.rate, h.paid,
		installments, h.version, h.createdAt, h.updatedAt,
	)
}

func scanLoanRow(s pgx.Row) (loanRow, error) {
	var h loanRow
	err := s.Scan(&h.id, &h.customerID, &h.principal, &h.rate, &h.paid, &h.version, &h.createdAt, &h.updatedAt)
	if err != nil {
		return loanRow{}, err
	}
	return h, nil
}

func (r *LoanRepo) findOne(ctx context.Context, query string, id uuid.UUID) (model.Loan, error) {
	h, err := scanLoanRow(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Loan{}, apperror.LoanNotFound(id)
		}
		return model.Loan{}, fmt.Errorf("scan loan: %w", err)
	}

	installments, err := r.loadInstallments(ctx, id)
	if err != nil {
		return model.Loan{}, err
	}
	return h.toModel(installments), nil
}

func (r *LoanRepo) loadInstallments(ctx context.Context, loanID uuid.UUID) ([]model.Installment, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT id, loan_id, sequence, amount, paid_amount, due_date, payment_date, paid
		FROM installments
		WHERE loan_id = $1
		ORDER BY sequence`,
		loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	var installments []model.Installment
	for rows.Next() {
		var inst model.Installment
		if err := rows.Scan(
			&inst.ID, &inst.LoanID, &inst.Sequence, &inst.Amount, &inst.PaidAmount,
			&inst.DueDate, &inst.PaymentDate, &inst.Paid,
		); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	return installments, nil
}
