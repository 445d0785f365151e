package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/pkg/auth"
	"github.com/bibbank/installment-lending/pkg/money"
)

type loanOriginator interface {
	Execute(ctx context.Context, req dto.OriginateLoanRequest) (dto.LoanResponse, error)
}

type paymentSettler interface {
	Execute(ctx context.Context, req dto.SettlePaymentRequest) (dto.PaymentResponse, error)
}

type loanGetter interface {
	Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanResponse, error)
}

type customerLoansLister interface {
	Execute(ctx context.Context, req dto.ListCustomerLoansRequest) (dto.ListLoansResponse, error)
}

type installmentsLister interface {
	Execute(ctx context.Context, req dto.ListLoanInstallmentsRequest) (dto.ListInstallmentsResponse, error)
}

// LendingHandler is the gRPC handler for lending operations. Callers with
// the customer role are limited to their own loans.
type LendingHandler struct {
	UnimplementedLendingServiceServer

	originate    loanOriginator
	settle       paymentSettler
	getLoan      loanGetter
	listLoans    customerLoansLister
	installments installmentsLister
}

// NewLendingHandler creates a new handler with all use-case dependencies.
func NewLendingHandler(
	originate loanOriginator,
	settle paymentSettler,
	getLoan loanGetter,
	listLoans customerLoansLister,
	installments installmentsLister,
) *LendingHandler {
	return &LendingHandler{
		originate:    originate,
		settle:       settle,
		getLoan:      getLoan,
		listLoans:    listLoans,
		installments: installments,
	}
}

// OriginateLoan issues a new loan to a customer.
func (h *LendingHandler) OriginateLoan(ctx context.Context, req *OriginateLoanRequest) (*OriginateLoanResponse, error) {
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	rate, err := parsePositive("interest_rate", req.InterestRate)
	if err != nil {
		return nil, err
	}
	if req.InstallmentCount <= 0 {
		return nil, status.Error(codes.InvalidArgument, "installment_count must be positive")
	}
	if err := authorize(ctx, customerID); err != nil {
		return nil, err
	}

	resp, err := h.originate.Execute(ctx, dto.OriginateLoanRequest{
		CustomerID:       customerID,
		Principal:        amount,
		InterestRate:     rate,
		InstallmentCount: req.InstallmentCount,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &OriginateLoanResponse{Loan: toLoan(resp)}, nil
}

// SettlePayment applies a payment to a loan's installments.
func (h *LendingHandler) SettlePayment(ctx context.Context, req *SettlePaymentRequest) (*SettlePaymentResponse, error) {
	loanID, err := parseID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := h.authorizedLoan(ctx, loanID); err != nil {
		return nil, err
	}

	resp, err := h.settle.Execute(ctx, dto.SettlePaymentRequest{
		LoanID:    loanID,
		Amount:    amount,
		PaymentID: strings.TrimSpace(req.PaymentID),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &SettlePaymentResponse{
		LoanID:           resp.LoanID,
		InstallmentsPaid: resp.InstallmentsPaid,
		AmountCollected:  money.Format(resp.AmountCollected),
		LoanFullyPaid:    resp.LoanFullyPaid,
	}, nil
}

// GetLoan retrieves a loan with its installments.
func (h *LendingHandler) GetLoan(ctx context.Context, req *GetLoanRequest) (*GetLoanResponse, error) {
	loanID, err := parseID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	loan, err := h.authorizedLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return &GetLoanResponse{Loan: toLoan(loan)}, nil
}

// ListCustomerLoans lists a customer's loans.
func (h *LendingHandler) ListCustomerLoans(ctx context.Context, req *ListCustomerLoansRequest) (*ListCustomerLoansResponse, error) {
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, customerID); err != nil {
		return nil, err
	}

	resp, err := h.listLoans.Execute(ctx, dto.ListCustomerLoansRequest{CustomerID: customerID})
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListCustomerLoansResponse{Loans: make([]*Loan, 0, len(resp.Loans))}
	for _, l := range resp.Loans {
		out.Loans = append(out.Loans, toLoan(l))
	}
	return out, nil
}

// ListLoanInstallments lists a loan's installments.
func (h *LendingHandler) ListLoanInstallments(ctx context.Context, req *ListLoanInstallmentsRequest) (*ListLoanInstallmentsResponse, error) {
	loanID, err := parseID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	if _, err := h.authorizedLoan(ctx, loanID); err != nil {
		return nil, err
	}

	resp, err := h.installments.Execute(ctx, dto.ListLoanInstallmentsRequest{LoanID: loanID})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListLoanInstallmentsResponse{Installments: toInstallments(resp.Installments)}, nil
}

// authorizedLoan loads the loan and checks the caller may act for its owner.
func (h *LendingHandler) authorizedLoan(ctx context.Context, loanID uuid.UUID) (dto.LoanResponse, error) {
	loan, err := h.getLoan.Execute(ctx, dto.GetLoanRequest{LoanID: loanID})
	if err != nil {
		return dto.LoanResponse{}, toStatus(err)
	}
	owner, err := uuid.Parse(loan.CustomerID)
	if err != nil {
		return dto.LoanResponse{}, status.Error(codes.Internal, "internal error")
	}
	if err := authorize(ctx, owner); err != nil {
		return dto.LoanResponse{}, err
	}
	return loan, nil
}

func authorize(ctx context.Context, customerID uuid.UUID) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "no claims in context")
	}
	if !claims.CanActFor(customerID) {
		return status.Error(codes.PermissionDenied, "caller may not act for this customer")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Request parsing
// ---------------------------------------------------------------------------

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", field)
	}
	return id, nil
}

func parsePositive(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s: %v", field, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be positive", field)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Response mapping
// ---------------------------------------------------------------------------

func toLoan(l dto.LoanResponse) *Loan {
	return &Loan{
		ID:               l.ID,
		CustomerID:       l.CustomerID,
		Amount:           l.Principal.String(),
		InterestRate:     l.InterestRate.String(),
		TotalPayable:     money.Format(l.TotalPayable),
		InstallmentCount: l.InstallmentCount,
		Paid:             l.Paid,
		Status:           l.Status,
		CreatedAt:        l.CreatedAt.UTC().Format(time.RFC3339),
		Installments:     toInstallments(l.Installments),
	}
}

func toInstallments(in []dto.InstallmentResponse) []*Installment {
	if len(in) == 0 {
		return nil
	}
	out := make([]*Installment, 0, len(in))
	for _, i := range in {
		inst := &Installment{
			ID:         i.ID,
			Sequence:   i.Sequence,
			Amount:     money.Format(i.Amount),
			PaidAmount: money.Format(i.PaidAmount),
			DueDate:    i.DueDate.Format(time.DateOnly),
			Paid:       i.Paid,
		}
		if i.PaymentDate != nil {
			inst.PaymentDate = i.PaymentDate.Format(time.DateOnly)
		}
		out = append(out, inst)
	}
	return out
}
