package usecase

import (
	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/model"
)

func toLoanResponse(loan model.Loan, withInstallments bool) dto.LoanResponse {
	resp := dto.LoanResponse{
		ID:               loan.ID().String(),
		CustomerID:       loan.CustomerID().String(),
		Principal:        loan.Principal(),
		InterestRate:     loan.InterestRate(),
		TotalPayable:     loan.TotalPayable(),
		InstallmentCount: loan.InstallmentCount(),
		Paid:             loan.Paid(),
		Status:           loan.Status().String(),
		CreatedAt:        loan.CreatedAt(),
		UpdatedAt:        loan.UpdatedAt(),
	}
	if withInstallments {
		resp.Installments = toInstallmentResponses(loan.Installments())
	}
	return resp
}

func toInstallmentResponses(installments []model.Installment) []dto.InstallmentResponse {
	out := make([]dto.InstallmentResponse, 0, len(installments))
	for _, inst := range installments {
		out = append(out, dto.InstallmentResponse{
			ID:          inst.ID.String(),
			LoanID:      inst.LoanID.String(),
			Sequence:    inst.Sequence,
			Amount:      inst.Amount,
			PaidAmount:  inst.PaidAmount,
			DueDate:     inst.DueDate,
			PaymentDate: inst.PaymentDate,
			Paid:        inst.Paid,
		})
	}
	return out
}
