package service

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
)

// LoanPolicy holds the configured lending limits.
type LoanPolicy struct {
	MinAmount         decimal.Decimal
	MinInterestRate   decimal.Decimal
	MaxInterestRate   decimal.Decimal
	InstallmentCounts []int
	Allocation        AllocationPolicy
}

// CheckOrigination validates a loan request against the policy. Checks run
// in a fixed order: amount, installment count, interest rate.
func (p LoanPolicy) CheckOrigination(principal, rate decimal.Decimal, count int) error {
	if principal.LessThan(p.MinAmount) {
		return apperror.LoanAmountTooLow(p.MinAmount)
	}
	if !p.AllowsInstallmentCount(count) {
		return apperror.InvalidInstallmentCount(count)
	}
	if rate.LessThan(p.MinInterestRate) || rate.GreaterThan(p.MaxInterestRate) {
		return apperror.InvalidInterestRate(rate)
	}
	return nil
}

// AllowsInstallmentCount reports whether n is one of the configured counts.
func (p LoanPolicy) AllowsInstallmentCount(n int) bool {
	for _, c := range p.InstallmentCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Validate checks the policy itself for consistency.
func (p LoanPolicy) Validate() error {
	var errs []error
	if !p.MinAmount.IsPositive() {
		errs = append(errs, fmt.Errorf("minimum loan amount must be positive, got %s", p.MinAmount))
	}
	if p.MinInterestRate.IsNegative() {
		errs = append(errs, fmt.Errorf("minimum interest rate must not be negative, got %s", p.MinInterestRate))
	}
	if p.MinInterestRate.GreaterThan(p.MaxInterestRate) {
		errs = append(errs, fmt.Errorf("interest rate bounds inverted: %s > %s", p.MinInterestRate, p.MaxInterestRate))
	}
	if len(p.InstallmentCounts) == 0 {
		errs = append(errs, errors.New("at least one installment count is required"))
	}
	for _, c := range p.InstallmentCounts {
		if c <= 0 {
			errs = append(errs, fmt.Errorf("installment count must be positive, got %d", c))
		}
	}
	if p.Allocation.MaxAdvanceMonths < 0 {
		errs = append(errs, fmt.Errorf("max advance months must not be negative, got %d", p.Allocation.MaxAdvanceMonths))
	}
	if p.Allocation.RewardPerDay.IsNegative() || p.Allocation.PenaltyPerDay.IsNegative() {
		errs = append(errs, errors.New("reward and penalty per day must not be negative"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// Every installment of the smallest loan must stay positive after the
	// largest early-payment reward.
	floor := p.smallestInstallment()
	reward := p.Allocation.maxEarlyReward()
	if !floor.GreaterThan(reward) {
		return fmt.Errorf(
			"smallest installment (about %s for %s over %d) does not exceed the maximum early-payment reward %s",
			floor.StringFixed(2), p.MinAmount, slices.Max(p.InstallmentCounts), reward.StringFixed(2),
		)
	}
	return nil
}

// smallestInstallment is a lower bound on any installment BuildSchedule
// produces for a loan the policy accepts: the minimum amount at the minimum
// rate over the most installments, less the cents the last installment can
// lose to rounding.
func (p LoanPolicy) smallestInstallment() decimal.Decimal {
	n := int64(slices.Max(p.InstallmentCounts))
	total := p.MinAmount.Mul(decimal.NewFromInt(1).Add(p.MinInterestRate))
	slack := decimal.New(5, -3).Mul(decimal.NewFromInt(n + 1))
	return total.Div(decimal.NewFromInt(n)).Sub(slack)
}

// maxEarlyReward bounds the reward on one installment paid inside the
// advance window. Installments fall due on the first of a month, so the
// earliest payment is at most 31 days per month of the window ahead.
func (a AllocationPolicy) maxEarlyReward() decimal.Decimal {
	return a.RewardPerDay.Mul(decimal.NewFromInt(int64(31 * a.MaxAdvanceMonths)))
}
