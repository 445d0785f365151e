package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/internal/domain/port"
	"github.com/bibbank/installment-lending/internal/domain/service"
)

// OriginateLoanUseCase reserves credit for a customer and issues a loan with
// its installment schedule.
type OriginateLoanUseCase struct {
	loanRepo port.LoanRepository
	ledger   port.CreditLedger
	tx       port.Transactor
	policy   service.LoanPolicy
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewOriginateLoanUseCase wires dependencies. A nil clock defaults to
// time.Now.
func NewOriginateLoanUseCase(
	loanRepo port.LoanRepository,
	ledger port.CreditLedger,
	tx port.Transactor,
	policy service.LoanPolicy,
	metrics *Metrics,
	logger *slog.Logger,
	clock func() time.Time,
) *OriginateLoanUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &OriginateLoanUseCase{
		loanRepo: loanRepo,
		ledger:   ledger,
		tx:       tx,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
		now:      clock,
	}
}

// Execute validates the request against the lending policy, reserves the
// total payable on the customer's credit and stores the new loan. The
// reservation, the loan and its LoanOriginated event are committed together
// or not at all.
func (uc *OriginateLoanUseCase) Execute(
	ctx context.Context,
	req dto.OriginateLoanRequest,
) (resp dto.LoanResponse, err error) {
	ctx, span := tracer.Start(ctx, "OriginateLoan", trace.WithAttributes(
		attribute.String("customer_id", req.CustomerID.String()),
		attribute.Int("installment_count", req.InstallmentCount),
	))
	defer func() { endSpan(span, err) }()

	if err := uc.policy.CheckOrigination(req.Principal, req.InterestRate, req.InstallmentCount); err != nil {
		return dto.LoanResponse{}, err
	}

	now := uc.now().UTC()
	total := model.TotalPayable(req.Principal, req.InterestRate)
	loanID := uuid.New()

	var loan model.Loan
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Reserve credit; fails when the customer is missing or over limit.
		if err := uc.ledger.Reserve(ctx, req.CustomerID, total); err != nil {
			return fmt.Errorf("reserve credit: %w", err)
		}

		// 2. Build the schedule and the loan aggregate.
		schedule := service.BuildSchedule(loanID, now, total, req.InstallmentCount)
		var err error
		loan, err = model.NewLoan(loanID, req.CustomerID, req.Principal, req.InterestRate, schedule, now)
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		// 3. Persist loan, installments and events.
		if err := uc.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	span.SetAttributes(attribute.String("loan_id", loan.ID().String()))
	uc.metrics.loanOriginated(ctx, loan.InstallmentCount())
	uc.logger.InfoContext(ctx, "loan originated",
		"loan_id", loan.ID().String(),
		"customer_id", loan.CustomerID().String(),
		"total_payable", total.StringFixed(2),
		"installments", loan.InstallmentCount(),
	)

	return toLoanResponse(loan, true), nil
}
