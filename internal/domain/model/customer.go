package model

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
)

// ErrNonPositiveCreditAmount is returned when a reservation or release is
// not strictly positive.
var ErrNonPositiveCreditAmount = errors.New("credit amount must be positive")

// Customer is a borrower with a revolving credit limit. Invariant:
// 0 <= usedCreditLimit <= creditLimit.
type Customer struct {
	id              uuid.UUID
	name            string
	surname         string
	creditLimit     decimal.Decimal
	usedCreditLimit decimal.Decimal
}

// ReconstructCustomer rebuilds a Customer from persistence.
func ReconstructCustomer(id uuid.UUID, name, surname string, creditLimit, used decimal.Decimal) Customer {
	return Customer{
		id:              id,
		name:            name,
		surname:         surname,
		creditLimit:     creditLimit,
		usedCreditLimit: used,
	}
}

// Reserve returns a copy with amount added to the used credit. It fails with
// apperror.ErrInsufficientCreditLimit when the available credit is lower
// than amount.
func (c Customer) Reserve(amount decimal.Decimal) (Customer, error) {
	if !amount.IsPositive() {
		return c, ErrNonPositiveCreditAmount
	}
	if c.AvailableCredit().LessThan(amount) {
		return c, apperror.ErrInsufficientCreditLimit
	}
	next := c
	next.usedCreditLimit = c.usedCreditLimit.Add(amount)
	return next, nil
}

// Release returns a copy with amount subtracted from the used credit,
// clamped at zero.
func (c Customer) Release(amount decimal.Decimal) (Customer, error) {
	if !amount.IsPositive() {
		return c, ErrNonPositiveCreditAmount
	}
	next := c
	next.usedCreditLimit = decimal.Max(decimal.Zero, c.usedCreditLimit.Sub(amount))
	return next, nil
}

func (c Customer) ID() uuid.UUID { return c.id }
func (c Customer) Name() string { return c.name }
func (c Customer) Surname() string { return c.surname }
func (c Customer) CreditLimit() decimal.Decimal { return c.creditLimit }
func (c Customer) UsedCreditLimit() decimal.Decimal { return c.usedCreditLimit }

// AvailableCredit is the credit limit not yet reserved by loans.
func (c Customer) AvailableCredit() decimal.Decimal {
	return c.creditLimit.Sub(c.usedCreditLimit)
}
