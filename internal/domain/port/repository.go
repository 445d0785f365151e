package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/event"
	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/pkg/events"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// LoanRepository persists and retrieves loans together with their
// installments. Missing loans are reported as apperror.ErrLoanNotFound.
type LoanRepository interface {
	Save(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error)
	// FindByIDForUpdate loads the loan and locks it until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (model.Loan, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Loan, error)
}

// CustomerRepository retrieves customers. Missing customers are reported as
// apperror.ErrCustomerNotFound.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (model.Customer, error)
}

// CreditLedger keeps a customer's used credit in step with their loans.
type CreditLedger interface {
	// Reserve adds amount to the used credit, failing with
	// apperror.ErrInsufficientCreditLimit or apperror.ErrCustomerNotFound.
	Reserve(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error
	// Release subtracts amount from the used credit, clamped at zero,
	// failing with apperror.ErrCustomerNotFound.
	Release(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error
}

// ProcessedPayments remembers which external payment IDs have been settled.
type ProcessedPayments interface {
	// Record stores paymentID against loanID and reports whether it was
	// seen for the first time. It joins the transaction carried by ctx, so
	// a rolled-back settlement forgets the ID again.
	Record(ctx context.Context, paymentID string, loanID uuid.UUID, at time.Time) (bool, error)
}

// Transactor runs fn as one atomic unit of work. Repositories and the
// ledger called with the ctx passed to fn join the same transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// OutboxRepository holds events written alongside the aggregates that
// raised them until a relay publishes them.
type OutboxRepository = events.OutboxRepository
