package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/pkg/calendar"
	"github.com/bibbank/installment-lending/pkg/money"
)

// BuildSchedule splits totalPayable into count monthly installments for
// loanID. Every installment but the last is totalPayable/count rounded
// half-up to cents; the last absorbs the rounding remainder, so the amounts
// always sum to totalPayable. The first installment falls due on the first
// day of the month after originationDate.
//
// Inputs are expected to be validated: count > 0 and totalPayable > 0.
func BuildSchedule(loanID uuid.UUID, originationDate time.Time, totalPayable decimal.Decimal, count int) []model.Installment {
	if count <= 0 {
		return nil
	}

	per := money.DivideHalfUp(totalPayable, int64(count))
	last := totalPayable.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))

	schedule := make([]model.Installment, 0, count)
	due := calendar.Date(originationDate)
	for seq := 1; seq <= count; seq++ {
		due = calendar.FirstDayOfNextMonth(due)
		amount := per
		if seq == count {
			amount = last
		}
		schedule = append(schedule, model.Installment{
			ID:         uuid.New(),
			LoanID:     loanID,
			Sequence:   seq,
			Amount:     amount,
			PaidAmount: decimal.Zero,
			DueDate:    due,
		})
	}
	return schedule
}
