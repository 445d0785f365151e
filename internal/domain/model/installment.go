package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment of a loan. It refers to its loan by
// ID only. Amount is fixed at origination; PaidAmount records the cash
// actually collected, which differs from Amount when a reward or penalty
// applied.
type Installment struct {
	ID          uuid.UUID
	LoanID      uuid.UUID
	Sequence    int
	Amount      decimal.Decimal
	PaidAmount  decimal.Decimal
	DueDate     time.Time
	PaymentDate *time.Time
	Paid        bool
}

// Settle marks the installment paid with the collected amount on the given
// date.
func (i *Installment) Settle(collected decimal.Decimal, on time.Time) {
	paidOn := on
	i.Paid = true
	i.PaidAmount = collected
	i.PaymentDate = &paidOn
}

func (i Installment) clone() Installment {
	out := i
	if i.PaymentDate != nil {
		d := *i.PaymentDate
		out.PaymentDate = &d
	}
	return out
}
