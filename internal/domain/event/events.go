package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Event type names, also used as the Kafka event_type header.
const (
	TypeLoanOriginated   = "lending.loan.originated"
	TypeInstallmentsPaid = "lending.loan.installments_paid"
	TypeLoanPaidOff      = "lending.loan.paid_off"
)

const aggregateLoan = "Loan"

// LoanOriginated is raised when a loan and its schedule are created and the
// customer's credit has been reserved.
type LoanOriginated struct {
	events.BaseEvent
	CustomerID       string          `json:"customer_id"`
	Principal        decimal.Decimal `json:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	TotalPayable     decimal.Decimal `json:"total_payable"`
	InstallmentCount int             `json:"installment_count"`
	FirstDueDate     time.Time       `json:"first_due_date"`
}

func NewLoanOriginated(
	loanID, customerID string,
	principal, rate, total decimal.Decimal,
	count int, firstDue, now time.Time,
) LoanOriginated {
	return LoanOriginated{
		BaseEvent:        events.NewBaseEvent(TypeLoanOriginated, loanID, aggregateLoan, now),
		CustomerID:       customerID,
		Principal:        principal,
		InterestRate:     rate,
		TotalPayable:     total,
		InstallmentCount: count,
		FirstDueDate:     firstDue,
	}
}

// InstallmentsPaid is raised when a payment settles one or more installments.
type InstallmentsPaid struct {
	events.BaseEvent
	CustomerID       string          `json:"customer_id"`
	InstallmentsPaid int             `json:"installments_paid"`
	AmountCollected  decimal.Decimal `json:"amount_collected"`
	PaymentDate      time.Time       `json:"payment_date"`
}

func NewInstallmentsPaid(
	loanID, customerID string,
	paid int, collected decimal.Decimal, now time.Time,
) InstallmentsPaid {
	return InstallmentsPaid{
		BaseEvent:        events.NewBaseEvent(TypeInstallmentsPaid, loanID, aggregateLoan, now),
		CustomerID:       customerID,
		InstallmentsPaid: paid,
		AmountCollected:  collected,
		PaymentDate:      now,
	}
}

// LoanPaidOff is raised when the last outstanding installment is settled.
type LoanPaidOff struct {
	events.BaseEvent
	CustomerID string `json:"customer_id"`
}

func NewLoanPaidOff(loanID, customerID string, now time.Time) LoanPaidOff {
	return LoanPaidOff{
		BaseEvent:  events.NewBaseEvent(TypeLoanPaidOff, loanID, aggregateLoan, now),
		CustomerID: customerID,
	}
}
