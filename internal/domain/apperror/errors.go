// Package apperror defines the business errors of the lending domain. Each
// carries a stable code that clients can match on and a human-readable
// message.
package apperror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a business error for transport mapping.
type Kind int

const (
	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = iota + 1
	// KindInvalid means the request violates a configured policy.
	KindInvalid
	// KindFailedPrecondition means the current state forbids the operation.
	KindFailedPrecondition
	// KindConflict means the operation was already applied.
	KindConflict
)

// Stable business error codes.
const (
	CodeCustomerNotFound        = "CUSTOMER_NOT_FOUND"
	CodeLoanNotFound            = "LOAN_NOT_FOUND"
	CodeInsufficientCreditLimit = "INSUFFICIENT_CREDIT_LIMIT"
	CodeInvalidInterestRate     = "INVALID_INTEREST_RATE"
	CodeInvalidInstallmentCount = "INVALID_NUM_OF_INSTALLMENTS"
	CodeLoanAmountTooLow        = "LOAN_AMOUNT_TOO_LOW"
	CodeLoanAlreadyPaid         = "LOAN_ALREADY_PAID"
	CodePaymentAlreadyProcessed = "PAYMENT_ALREADY_PROCESSED"
)

// BusinessError is an expected, client-facing failure.
type BusinessError struct {
	Code    string
	Message string
	Kind    Kind
}

func (e *BusinessError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any BusinessError with the same code, so a formatted error
// satisfies errors.Is against its sentinel.
func (e *BusinessError) Is(target error) bool {
	var be *BusinessError
	if !errors.As(target, &be) {
		return false
	}
	return be.Code == e.Code
}

// Sentinels for errors.Is matching.
var (
	ErrCustomerNotFound        = &BusinessError{Code: CodeCustomerNotFound, Message: "customer is not found", Kind: KindNotFound}
	ErrLoanNotFound            = &BusinessError{Code: CodeLoanNotFound, Message: "loan is not found", Kind: KindNotFound}
	ErrInsufficientCreditLimit = &BusinessError{Code: CodeInsufficientCreditLimit, Message: "credit limit of the customer is not sufficient to perform this transaction", Kind: KindFailedPrecondition}
	ErrInvalidInterestRate     = &BusinessError{Code: CodeInvalidInterestRate, Message: "invalid interest rate", Kind: KindInvalid}
	ErrInvalidInstallmentCount = &BusinessError{Code: CodeInvalidInstallmentCount, Message: "invalid number of installments", Kind: KindInvalid}
	ErrLoanAmountTooLow        = &BusinessError{Code: CodeLoanAmountTooLow, Message: "loan amount is too low", Kind: KindInvalid}
	ErrLoanAlreadyPaid         = &BusinessError{Code: CodeLoanAlreadyPaid, Message: "the loan is already paid", Kind: KindFailedPrecondition}
	ErrPaymentAlreadyProcessed = &BusinessError{Code: CodePaymentAlreadyProcessed, Message: "the payment was already processed", Kind: KindConflict}
)

// ErrLedgerInconsistent signals that persisted state broke an invariant,
// for example a loan whose customer no longer exists. It is not a business
// error: callers abort the unit of work and surface it as internal.
var ErrLedgerInconsistent = errors.New("credit ledger inconsistency")

// CustomerNotFound returns ErrCustomerNotFound naming id.
func CustomerNotFound(id uuid.UUID) error {
	return withMessage(ErrCustomerNotFound, fmt.Sprintf("customer with id %s is not found", id))
}

// LoanNotFound returns ErrLoanNotFound naming id.
func LoanNotFound(id uuid.UUID) error {
	return withMessage(ErrLoanNotFound, fmt.Sprintf("loan with id %s is not found", id))
}

// InvalidInterestRate returns ErrInvalidInterestRate naming rate.
func InvalidInterestRate(rate decimal.Decimal) error {
	return withMessage(ErrInvalidInterestRate, fmt.Sprintf("invalid interest rate: %s", rate))
}

// InvalidInstallmentCount returns ErrInvalidInstallmentCount naming n.
func InvalidInstallmentCount(n int) error {
	return withMessage(ErrInvalidInstallmentCount, fmt.Sprintf("invalid number of installments: %d", n))
}

// LoanAmountTooLow returns ErrLoanAmountTooLow naming the minimum.
func LoanAmountTooLow(minimum decimal.Decimal) error {
	return withMessage(ErrLoanAmountTooLow, fmt.Sprintf("loan amount cannot be lower than %s", minimum))
}

// PaymentAlreadyProcessed returns ErrPaymentAlreadyProcessed naming the
// payment.
func PaymentAlreadyProcessed(paymentID string) error {
	return withMessage(ErrPaymentAlreadyProcessed, fmt.Sprintf("payment %s was already processed", paymentID))
}

// KindOf reports the kind of the first BusinessError in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

func withMessage(base *BusinessError, msg string) *BusinessError {
	return &BusinessError{Code: base.Code, Message: msg, Kind: base.Kind}
}
