package valueobject

import "fmt"

// LoanStatus is the externally reported lifecycle stage of a loan. A loan
// is ACTIVE until every installment is settled, then PAID.
type LoanStatus struct {
	value string
}

const (
	loanStatusActive = "ACTIVE"
	loanStatusPaid   = "PAID"
)

var (
	LoanStatusActive = LoanStatus{value: loanStatusActive}
	LoanStatusPaid   = LoanStatus{value: loanStatusPaid}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusActive: LoanStatusActive,
	loanStatusPaid:   LoanStatusPaid,
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// LoanStatusFromPaid maps the loan's paid flag to its status.
func LoanStatusFromPaid(paid bool) LoanStatus {
	if paid {
		return LoanStatusPaid
	}
	return LoanStatusActive
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }
