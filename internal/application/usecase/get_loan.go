package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/port"
)

// GetLoanUseCase retrieves a single loan with its installments.
type GetLoanUseCase struct {
	loanRepo port.LoanRepository
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(loanRepo port.LoanRepository) *GetLoanUseCase {
	return &GetLoanUseCase{loanRepo: loanRepo}
}

// Execute retrieves a loan by ID.
func (uc *GetLoanUseCase) Execute(
	ctx context.Context,
	req dto.GetLoanRequest,
) (dto.LoanResponse, error) {
	loan, err := uc.loanRepo.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return toLoanResponse(loan, true), nil
}

// ListCustomerLoansUseCase lists every loan held by a customer.
type ListCustomerLoansUseCase struct {
	customerRepo port.CustomerRepository
	loanRepo     port.LoanRepository
}

// NewListCustomerLoansUseCase wires dependencies.
func NewListCustomerLoansUseCase(
	customerRepo port.CustomerRepository,
	loanRepo port.LoanRepository,
) *ListCustomerLoansUseCase {
	return &ListCustomerLoansUseCase{
		customerRepo: customerRepo,
		loanRepo:     loanRepo,
	}
}

// Execute returns the customer's loans without their installments. An
// unknown customer is an error rather than an empty list.
func (uc *ListCustomerLoansUseCase) Execute(
	ctx context.Context,
	req dto.ListCustomerLoansRequest,
) (dto.ListLoansResponse, error) {
	if _, err := uc.customerRepo.FindByID(ctx, req.CustomerID); err != nil {
		return dto.ListLoansResponse{}, fmt.Errorf("find customer: %w", err)
	}

	loans, err := uc.loanRepo.FindByCustomerID(ctx, req.CustomerID)
	if err != nil {
		return dto.ListLoansResponse{}, fmt.Errorf("list loans: %w", err)
	}

	resp := dto.ListLoansResponse{Loans: make([]dto.LoanResponse, 0, len(loans))}
	for _, loan := range loans {
		resp.Loans = append(resp.Loans, toLoanResponse(loan, false))
	}
	return resp, nil
}

// ListLoanInstallmentsUseCase lists a loan's installments in schedule order.
type ListLoanInstallmentsUseCase struct {
	loanRepo port.LoanRepository
}

// NewListLoanInstallmentsUseCase wires dependencies.
func NewListLoanInstallmentsUseCase(loanRepo port.LoanRepository) *ListLoanInstallmentsUseCase {
	return &ListLoanInstallmentsUseCase{loanRepo: loanRepo}
}

// Execute returns the installments of a loan.
func (uc *ListLoanInstallmentsUseCase) Execute(
	ctx context.Context,
	req dto.ListLoanInstallmentsRequest,
) (dto.ListInstallmentsResponse, error) {
	loan, err := uc.loanRepo.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.ListInstallmentsResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return dto.ListInstallmentsResponse{
		Installments: toInstallmentResponses(loan.Installments()),
	}, nil
}
