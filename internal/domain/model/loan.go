package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/internal/domain/event"
	"github.com/bibbank/installment-lending/internal/domain/valueobject"
	"github.com/bibbank/installment-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate owning its installments. Mutations return
// a new copy.
type Loan struct {
	id           uuid.UUID
	customerID   uuid.UUID
	principal    decimal.Decimal
	interestRate decimal.Decimal
	paid         bool
	installments []Installment
	version      int
	createdAt    time.Time
	updatedAt    time.Time
	domainEvents []event.DomainEvent
}

// TotalPayable is the amount a borrower repays for principal at the flat
// rate, rounded half-up to cents.
func TotalPayable(principal, rate decimal.Decimal) decimal.Decimal {
	return money.Round(principal.Mul(decimal.NewFromInt(1).Add(rate)), money.HalfUp)
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoan creates a loan over a prepared installment schedule. The schedule
// must belong to id and sum to TotalPayable(principal, rate).
func NewLoan(
	id, customerID uuid.UUID,
	principal, rate decimal.Decimal,
	schedule []Installment,
	now time.Time,
) (Loan, error) {
	if id == uuid.Nil {
		return Loan{}, errors.New("loan ID is required")
	}
	if customerID == uuid.Nil {
		return Loan{}, errors.New("customer ID is required")
	}
	if !principal.IsPositive() {
		return Loan{}, errors.New("principal must be positive")
	}
	if len(schedule) == 0 {
		return Loan{}, errors.New("schedule must have at least one installment")
	}

	total := TotalPayable(principal, rate)
	sum := decimal.Zero
	for _, inst := range schedule {
		if inst.LoanID != id {
			return Loan{}, fmt.Errorf("installment %d belongs to loan %s", inst.Sequence, inst.LoanID)
		}
		if !inst.Amount.IsPositive() {
			return Loan{}, fmt.Errorf("installment %d amount must be positive", inst.Sequence)
		}
		sum = sum.Add(inst.Amount)
	}
	if !sum.Equal(total) {
		return Loan{}, fmt.Errorf("schedule sums to %s, want %s", sum, total)
	}

	loan := Loan{
		id:           id,
		customerID:   customerID,
		principal:    principal,
		interestRate: rate,
		installments: cloneInstallments(schedule),
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}
	sortBySequence(loan.installments)

	loan.domainEvents = append(loan.domainEvents, event.NewLoanOriginated(
		id.String(), customerID.String(),
		principal, rate, total, len(schedule),
		loan.installments[0].DueDate, now,
	))

	return loan, nil
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(
	id, customerID uuid.UUID,
	principal, rate decimal.Decimal,
	paid bool,
	installments []Installment,
	version int,
	createdAt, updatedAt time.Time,
) Loan {
	loan := Loan{
		id:           id,
		customerID:   customerID,
		principal:    principal,
		interestRate: rate,
		paid:         paid,
		installments: cloneInstallments(installments),
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
	sortBySequence(loan.installments)
	return loan
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// RecordPayment merges installments settled by one allocation pass into a
// new copy of the loan. The loan becomes paid when no installment is left
// outstanding. Passing no settled installments returns the loan unchanged.
func (l Loan) RecordPayment(settled []*Installment, collected decimal.Decimal, now time.Time) (Loan, error) {
	if l.paid {
		return l, apperror.ErrLoanAlreadyPaid
	}
	if len(settled) == 0 {
		return l, nil
	}

	next := l
	next.installments = cloneInstallments(l.installments)
	index := make(map[uuid.UUID]int, len(next.installments))
	for i, inst := range next.installments {
		index[inst.ID] = i
	}
	for _, s := range settled {
		i, ok := index[s.ID]
		if !ok {
			return l, fmt.Errorf("installment %s does not belong to loan %s", s.ID, l.id)
		}
		if next.installments[i].Paid {
			return l, fmt.Errorf("installment %s is already paid", s.ID)
		}
		next.installments[i] = s.clone()
	}

	next.paid = true
	for _, inst := range next.installments {
		if !inst.Paid {
			next.paid = false
			break
		}
	}

	next.version = l.version + 1
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewInstallmentsPaid(
		l.id.String(), l.customerID.String(), len(settled), collected, now,
	))
	if next.paid {
		next.domainEvents = append(next.domainEvents, event.NewLoanPaidOff(l.id.String(), l.customerID.String(), now))
	}

	return next, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() uuid.UUID { return l.id }
func (l Loan) CustomerID() uuid.UUID { return l.customerID }
func (l Loan) Principal() decimal.Decimal { return l.principal }
func (l Loan) InterestRate() decimal.Decimal { return l.interestRate }
func (l Loan) InstallmentCount() int { return len(l.installments) }
func (l Loan) Paid() bool { return l.paid }
func (l Loan) Version() int { return l.version }
func (l Loan) CreatedAt() time.Time { return l.createdAt }
func (l Loan) UpdatedAt() time.Time { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent { return l.domainEvents }

// Status reports ACTIVE or PAID.
func (l Loan) Status() valueobject.LoanStatus {
	return valueobject.LoanStatusFromPaid(l.paid)
}

// TotalPayable is the sum of all installment amounts.
func (l Loan) TotalPayable() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.installments {
		total = total.Add(inst.Amount)
	}
	return total
}

// Installments returns a copy of the schedule, ordered by sequence.
func (l Loan) Installments() []Installment {
	return cloneInstallments(l.installments)
}

// UnpaidInstallments returns copies of the outstanding installments. The
// caller may mutate them and hand the settled ones back to RecordPayment.
func (l Loan) UnpaidInstallments() []*Installment {
	var out []*Installment
	for _, inst := range l.installments {
		if !inst.Paid {
			c := inst.clone()
			out = append(out, &c)
		}
	}
	return out
}

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

func cloneInstallments(in []Installment) []Installment {
	if in == nil {
		return nil
	}
	out := make([]Installment, len(in))
	for i, inst := range in {
		out[i] = inst.clone()
	}
	return out
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if src == nil {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}

func sortBySequence(in []Installment) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Sequence < in[j].Sequence })
}
