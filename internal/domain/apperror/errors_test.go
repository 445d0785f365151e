package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormattedErrorsMatchSentinels(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"customer not found", CustomerNotFound(id), ErrCustomerNotFound, "CUSTOMER_NOT_FOUND: customer with id 00000000-0000-0000-0000-000000000001 is not found"},
		{"loan not found", LoanNotFound(id), ErrLoanNotFound, "LOAN_NOT_FOUND: loan with id 00000000-0000-0000-0000-000000000001 is not found"},
		{"interest rate", InvalidInterestRate(decimal.RequireFromString("0.7")), ErrInvalidInterestRate, "INVALID_INTEREST_RATE: invalid interest rate: 0.7"},
		{"installments", InvalidInstallmentCount(7), ErrInvalidInstallmentCount, "INVALID_NUM_OF_INSTALLMENTS: invalid number of installments: 7"},
		{"amount too low", LoanAmountTooLow(decimal.NewFromInt(1000)), ErrLoanAmountTooLow, "LOAN_AMOUNT_TOO_LOW: loan amount cannot be lower than 1000"},
		{"duplicate payment", PaymentAlreadyProcessed("pay-1"), ErrPaymentAlreadyProcessed, "PAYMENT_ALREADY_PROCESSED: payment pay-1 was already processed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestDistinctCodesDoNotMatch(t *testing.T) {
	assert.NotErrorIs(t, ErrLoanNotFound, ErrCustomerNotFound)
	assert.NotErrorIs(t, ErrLedgerInconsistent, ErrCustomerNotFound)
	assert.NotErrorIs(t, errors.New("LOAN_NOT_FOUND"), ErrLoanNotFound)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("find loan: %w", LoanNotFound(uuid.New())))
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)

	kind, ok = KindOf(ErrLoanAlreadyPaid)
	require.True(t, ok)
	assert.Equal(t, KindFailedPrecondition, kind)

	kind, ok = KindOf(ErrInvalidInterestRate)
	require.True(t, ok)
	assert.Equal(t, KindInvalid, kind)

	kind, ok = KindOf(PaymentAlreadyProcessed("pay-1"))
	require.True(t, ok)
	assert.Equal(t, KindConflict, kind)

	_, ok = KindOf(ErrLedgerInconsistent)
	assert.False(t, ok)
}
