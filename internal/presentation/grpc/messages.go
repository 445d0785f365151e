package grpc

// Wire messages for lending.v1.LendingService, carried by the JSON codec.
// Amounts and rates travel as decimal strings.

type OriginateLoanRequest struct {
	CustomerID       string `json:"customer_id"`
	Amount           string `json:"amount"`
	InterestRate     string `json:"interest_rate"`
	InstallmentCount int    `json:"installment_count"`
}

type OriginateLoanResponse struct {
	Loan *Loan `json:"loan"`
}

type SettlePaymentRequest struct {
	LoanID string `json:"loan_id"`
	Amount string `json:"amount"`
	// PaymentID makes retries safe: a repeated id is rejected with
	// AlreadyExists. Optional.
	PaymentID string `json:"payment_id,omitempty"`
}

type SettlePaymentResponse struct {
	LoanID           string `json:"loan_id"`
	InstallmentsPaid int    `json:"installments_paid"`
	AmountCollected  string `json:"amount_collected"`
	LoanFullyPaid    bool   `json:"loan_fully_paid"`
}

type GetLoanRequest struct {
	LoanID string `json:"loan_id"`
}

type GetLoanResponse struct {
	Loan *Loan `json:"loan"`
}

type ListCustomerLoansRequest struct {
	CustomerID string `json:"customer_id"`
}

type ListCustomerLoansResponse struct {
	Loans []*Loan `json:"loans"`
}

type ListLoanInstallmentsRequest struct {
	LoanID string `json:"loan_id"`
}

type ListLoanInstallmentsResponse struct {
	Installments []*Installment `json:"installments"`
}

type Loan struct {
	ID               string         `json:"id"`
	CustomerID       string         `json:"customer_id"`
	Amount           string         `json:"amount"`
	InterestRate     string         `json:"interest_rate"`
	TotalPayable     string         `json:"total_payable"`
	InstallmentCount int            `json:"installment_count"`
	Paid             bool           `json:"paid"`
	Status           string         `json:"status"`
	CreatedAt        string         `json:"created_at"`
	Installments     []*Installment `json:"installments,omitempty"`
}

type Installment struct {
	ID          string `json:"id"`
	Sequence    int    `json:"sequence"`
	Amount      string `json:"amount"`
	PaidAmount  string `json:"paid_amount"`
	DueDate     string `json:"due_date"`
	PaymentDate string `json:"payment_date,omitempty"`
	Paid        bool   `json:"paid"`
}
