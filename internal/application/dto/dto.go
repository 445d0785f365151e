package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// OriginateLoanRequest carries the data needed to issue a new loan.
type OriginateLoanRequest struct {
	CustomerID       uuid.UUID       `json:"customer_id"`
	Principal        decimal.Decimal `json:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	InstallmentCount int             `json:"installment_count"`
}

// SettlePaymentRequest carries a cash payment against a loan. A non-empty
// PaymentID is settled at most once.
type SettlePaymentRequest struct {
	LoanID    uuid.UUID       `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID string          `json:"payment_id,omitempty"`
}

// GetLoanRequest identifies a loan to retrieve.
type GetLoanRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
}

// ListCustomerLoansRequest identifies the customer whose loans to list.
type ListCustomerLoansRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

// ListLoanInstallmentsRequest identifies the loan whose installments to list.
type ListLoanInstallmentsRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// InstallmentResponse represents a single scheduled installment.
type InstallmentResponse struct {
	ID          string          `json:"id"`
	LoanID      string          `json:"loan_id"`
	Sequence    int             `json:"sequence"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueDate     time.Time       `json:"due_date"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Paid        bool            `json:"paid"`
}

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	ID               string                `json:"id"`
	CustomerID       string                `json:"customer_id"`
	Principal        decimal.Decimal       `json:"principal"`
	InterestRate     decimal.Decimal       `json:"interest_rate"`
	TotalPayable     decimal.Decimal       `json:"total_payable"`
	InstallmentCount int                   `json:"installment_count"`
	Paid             bool                  `json:"paid"`
	Status           string                `json:"status"`
	Installments     []InstallmentResponse `json:"installments,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// PaymentResponse summarises one payment allocation.
type PaymentResponse struct {
	LoanID           string          `json:"loan_id"`
	InstallmentsPaid int             `json:"installments_paid"`
	AmountCollected  decimal.Decimal `json:"amount_collected"`
	LoanFullyPaid    bool            `json:"loan_fully_paid"`
}

// ListLoansResponse wraps a customer's loans.
type ListLoansResponse struct {
	Loans []LoanResponse `json:"loans"`
}

// ListInstallmentsResponse wraps a loan's installments.
type ListInstallmentsResponse struct {
	Installments []InstallmentResponse `json:"installments"`
}
