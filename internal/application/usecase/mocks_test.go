package usecase_test

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/internal/domain/event"
	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/internal/domain/service"
	"github.com/bibbank/installment-lending/pkg/events"
)

var (
	testCustomerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testLoanID     = uuid.MustParse("00000000-0000-0000-0000-000000000100")
	discardLogger  = slog.New(slog.DiscardHandler)
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testPolicy() service.LoanPolicy {
	return service.LoanPolicy{
		MinAmount:         decimal.NewFromInt(1000),
		MinInterestRate:   decimal.RequireFromString("0.1"),
		MaxInterestRate:   decimal.RequireFromString("0.5"),
		InstallmentCounts: []int{6, 9, 12, 24},
		Allocation: service.AllocationPolicy{
			RewardPerDay:     decimal.RequireFromString("0.001"),
			PenaltyPerDay:    decimal.RequireFromString("0.001"),
			MaxAdvanceMonths: 3,
		},
	}
}

// scheduledLoan returns a 1000 at 20% loan over six installments of 200,
// due on the first of each month from November 2023, with the first
// paidCount already settled.
func scheduledLoan(paidCount int) model.Loan {
	installments := make([]model.Installment, 6)
	for i := range installments {
		inst := model.Installment{
			ID:       uuid.New(),
			LoanID:   testLoanID,
			Sequence: i + 1,
			Amount:   decimal.NewFromInt(200),
			DueDate:  date(2023, time.November, 1).AddDate(0, i, 0),
		}
		if i < paidCount {
			inst.Settle(decimal.NewFromInt(200), inst.DueDate)
		}
		installments[i] = inst
	}
	created := date(2023, time.October, 10)
	return model.ReconstructLoan(
		testLoanID, testCustomerID,
		decimal.NewFromInt(1000), decimal.RequireFromString("0.2"),
		paidCount == len(installments),
		installments, 1+paidCount, created, created,
	)
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

type mockLoanRepository struct {
	saveFunc              func(ctx context.Context, loan model.Loan) error
	findByIDFunc          func(ctx context.Context, id uuid.UUID) (model.Loan, error)
	findByIDForUpdateFunc func(ctx context.Context, id uuid.UUID) (model.Loan, error)
	findByCustomerIDFunc  func(ctx context.Context, customerID uuid.UUID) ([]model.Loan, error)
	savedLoans            []model.Loan
}

func (m *mockLoanRepository) Save(ctx context.Context, loan model.Loan) error {
	m.savedLoans = append(m.savedLoans, loan)
	if m.saveFunc != nil {
		return m.saveFunc(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return model.Loan{}, apperror.LoanNotFound(id)
}

func (m *mockLoanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	if m.findByIDForUpdateFunc != nil {
		return m.findByIDForUpdateFunc(ctx, id)
	}
	return model.Loan{}, apperror.LoanNotFound(id)
}

func (m *mockLoanRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Loan, error) {
	if m.findByCustomerIDFunc != nil {
		return m.findByCustomerIDFunc(ctx, customerID)
	}
	return nil, nil
}

type mockCustomerRepository struct {
	findByIDFunc func(ctx context.Context, id uuid.UUID) (model.Customer, error)
}

func (m *mockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Customer, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return model.ReconstructCustomer(id, "Ada", "Lovelace", decimal.NewFromInt(10000), decimal.Zero), nil
}

type mockCreditLedger struct {
	reserveFunc func(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error
	releaseFunc func(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error
	reserved    []decimal.Decimal
	released    []decimal.Decimal
}

func (m *mockCreditLedger) Reserve(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error {
	if m.reserveFunc != nil {
		if err := m.reserveFunc(ctx, customerID, amount); err != nil {
			return err
		}
	}
	m.reserved = append(m.reserved, amount)
	return nil
}

func (m *mockCreditLedger) Release(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) error {
	if m.releaseFunc != nil {
		if err := m.releaseFunc(ctx, customerID, amount); err != nil {
			return err
		}
	}
	m.released = append(m.released, amount)
	return nil
}

type mockProcessedPayments struct {
	recordFunc func(ctx context.Context, paymentID string, loanID uuid.UUID) error
	recorded   []string
}

func (m *mockProcessedPayments) Record(ctx context.Context, paymentID string, loanID uuid.UUID, at time.Time) (bool, error) {
	if m.recordFunc != nil {
		if err := m.recordFunc(ctx, paymentID, loanID); err != nil {
			return false, err
		}
	}
	if slices.Contains(m.recorded, paymentID) {
		return false, nil
	}
	m.recorded = append(m.recorded, paymentID)
	return true, nil
}

type mockOutbox struct {
	mu        sync.Mutex
	pending   []events.OutboxEntry
	fetchErr  error
	marked    []string
	batchSeen []int
}

func (m *mockOutbox) Store(ctx context.Context, entries []events.OutboxEntry) error {
	m.pending = append(m.pending, entries...)
	return nil
}

func (m *mockOutbox) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchSeen = append(m.batchSeen, batchSize)
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []events.OutboxEntry
	for _, e := range m.pending {
		if len(out) == batchSize {
			break
		}
		if !slices.Contains(m.marked, e.ID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOutbox) MarkPublished(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, ids...)
	return nil
}

func (m *mockOutbox) fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batchSeen)
}

type txKey struct{}

// mockTransactor marks the context passed to fn so collaborators can assert
// they ran inside the unit of work.
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// ---------------------------------------------------------------------------
// Mock event publisher
// ---------------------------------------------------------------------------

type mockLendingEventPublisher struct {
	publishFunc     func(ctx context.Context, evts ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockLendingEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func eventTypes(evts []event.DomainEvent) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.EventType())
	}
	return out
}
