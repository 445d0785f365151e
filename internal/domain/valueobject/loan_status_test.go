package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoanStatus(t *testing.T) {
	s, err := NewLoanStatus("ACTIVE")
	require.NoError(t, err)
	assert.True(t, s.Equal(LoanStatusActive))

	s, err = NewLoanStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, "PAID", s.String())

	_, err = NewLoanStatus("DEFAULT")
	assert.Error(t, err)

	assert.True(t, LoanStatus{}.IsZero())
}

func TestLoanStatusFromPaid(t *testing.T) {
	assert.Equal(t, LoanStatusPaid, LoanStatusFromPaid(true))
	assert.Equal(t, LoanStatusActive, LoanStatusFromPaid(false))
}
