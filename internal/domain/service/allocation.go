package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/pkg/calendar"
	"github.com/bibbank/installment-lending/pkg/money"
)

// AllocationPolicy holds the date-sensitive payment rules.
type AllocationPolicy struct {
	// RewardPerDay is the amount discounted per day an installment is paid
	// before its due date.
	RewardPerDay decimal.Decimal
	// PenaltyPerDay is the amount added per day an installment is paid after
	// its due date.
	PenaltyPerDay decimal.Decimal
	// MaxAdvanceMonths bounds how many whole months ahead of the payment
	// month an installment may fall due and still be paid.
	MaxAdvanceMonths int
}

// Allocation is the outcome of one allocation pass.
type Allocation struct {
	// Paid lists the installments settled by this pass, earliest due first.
	Paid []*model.Installment
	// Collected is the cash taken, after rewards and penalties.
	Collected decimal.Decimal
	// FullySettled is true when every outstanding installment was paid.
	FullySettled bool
}

// ReleasedAmount is the credit to hand back to the customer: the sum of the
// original amounts of the paid installments, not the adjusted cash.
func (a Allocation) ReleasedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range a.Paid {
		total = total.Add(inst.Amount)
	}
	return total
}

// AdjustedAmount is what settling inst on paymentDate costs. Paying early
// takes RewardPerDay per day off, rounded up to cents; paying late adds
// PenaltyPerDay per day, rounded down to cents.
func AdjustedAmount(inst model.Installment, paymentDate time.Time, policy AllocationPolicy) decimal.Decimal {
	days := calendar.DaysBetween(paymentDate, inst.DueDate)
	switch {
	case days > 0:
		reward := policy.RewardPerDay.Mul(decimal.NewFromInt(int64(days)))
		return money.Round(inst.Amount.Sub(reward), money.Up)
	case days < 0:
		penalty := policy.PenaltyPerDay.Mul(decimal.NewFromInt(int64(-days)))
		return money.Round(inst.Amount.Add(penalty), money.Down)
	default:
		return inst.Amount
	}
}

// AllocatePayment applies amount to unpaid in due-date order, settling whole
// installments only. It stops at the first installment that the remaining
// cash cannot cover or that falls due more than MaxAdvanceMonths whole
// months after the first day of the payment month. Settled installments
// are mutated in place; nothing is persisted.
func AllocatePayment(paymentDate time.Time, unpaid []*model.Installment, amount decimal.Decimal, policy AllocationPolicy) Allocation {
	ordered := make([]*model.Installment, len(unpaid))
	copy(ordered, unpaid)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DueDate.Before(ordered[j].DueDate)
	})

	paymentDay := calendar.Date(paymentDate)
	paymentMonth := calendar.FirstDayOfMonth(paymentDay)
	remaining := amount
	result := Allocation{Collected: decimal.Zero}

	for _, inst := range ordered {
		adjusted := AdjustedAmount(*inst, paymentDay, policy)
		monthsAhead := calendar.MonthsBetween(paymentMonth, inst.DueDate)
		if remaining.LessThan(adjusted) || monthsAhead > policy.MaxAdvanceMonths {
			break
		}

		inst.Settle(adjusted, paymentDay)
		remaining = remaining.Sub(adjusted)
		result.Collected = result.Collected.Add(adjusted)
		result.Paid = append(result.Paid, inst)
	}

	result.FullySettled = len(result.Paid) == len(unpaid)
	return result
}
