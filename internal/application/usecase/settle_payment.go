package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/internal/domain/model"
	"github.com/bibbank/installment-lending/internal/domain/port"
	"github.com/bibbank/installment-lending/internal/domain/service"
	"github.com/bibbank/installment-lending/pkg/calendar"
)

// SettlePaymentUseCase allocates a cash payment to a loan's outstanding
// installments and hands the settled amounts back to the customer's credit.
type SettlePaymentUseCase struct {
	loanRepo port.LoanRepository
	ledger   port.CreditLedger
	payments port.ProcessedPayments
	tx       port.Transactor
	policy   service.AllocationPolicy
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewSettlePaymentUseCase wires dependencies. A nil clock defaults to
// time.Now.
func NewSettlePaymentUseCase(
	loanRepo port.LoanRepository,
	ledger port.CreditLedger,
	payments port.ProcessedPayments,
	tx port.Transactor,
	policy service.AllocationPolicy,
	metrics *Metrics,
	logger *slog.Logger,
	clock func() time.Time,
) *SettlePaymentUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &SettlePaymentUseCase{
		loanRepo: loanRepo,
		ledger:   ledger,
		payments: payments,
		tx:       tx,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
		now:      clock,
	}
}

// Execute runs one allocation pass for the payment. A payment too small for
// the earliest installment succeeds with nothing paid. A payment whose
// PaymentID was already settled fails with
// apperror.ErrPaymentAlreadyProcessed and changes nothing.
func (uc *SettlePaymentUseCase) Execute(
	ctx context.Context,
	req dto.SettlePaymentRequest,
) (resp dto.PaymentResponse, err error) {
	ctx, span := tracer.Start(ctx, "SettlePayment", trace.WithAttributes(
		attribute.String("loan_id", req.LoanID.String()),
	))
	defer func() { endSpan(span, err) }()

	now := uc.now().UTC()
	paymentDate := calendar.Date(now)

	var (
		loan       model.Loan
		allocation service.Allocation
	)
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Load and lock the loan.
		var err error
		loan, err = uc.loanRepo.FindByIDForUpdate(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		if req.PaymentID != "" {
			first, err := uc.payments.Record(ctx, req.PaymentID, req.LoanID, now)
			if err != nil {
				return err
			}
			if !first {
				return apperror.PaymentAlreadyProcessed(req.PaymentID)
			}
		}
		if loan.Paid() {
			return apperror.ErrLoanAlreadyPaid
		}

		// 2. Allocate the payment across outstanding installments.
		allocation = service.AllocatePayment(paymentDate, loan.UnpaidInstallments(), req.Amount, uc.policy)
		if len(allocation.Paid) == 0 {
			return nil
		}

		loan, err = loan.RecordPayment(allocation.Paid, allocation.Collected, now)
		if err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		// 3. Release the original amounts of the paid installments.
		if err := uc.ledger.Release(ctx, loan.CustomerID(), allocation.ReleasedAmount()); err != nil {
			if errors.Is(err, apperror.ErrCustomerNotFound) {
				return fmt.Errorf("release credit for loan %s: %w: %w", loan.ID(), apperror.ErrLedgerInconsistent, err)
			}
			return fmt.Errorf("release credit: %w", err)
		}

		// 4. Persist the settled installments and their events.
		if err := uc.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	span.SetAttributes(
		attribute.Int("installments_paid", len(allocation.Paid)),
		attribute.Bool("loan_fully_paid", loan.Paid()),
	)
	collected, _ := allocation.Collected.Float64()
	uc.metrics.paymentSettled(ctx, len(allocation.Paid), collected, loan.Paid())
	uc.logger.InfoContext(ctx, "payment settled",
		"loan_id", loan.ID().String(),
		"customer_id", loan.CustomerID().String(),
		"installments_paid", len(allocation.Paid),
		"amount_collected", allocation.Collected.StringFixed(2),
		"loan_fully_paid", loan.Paid(),
	)

	return dto.PaymentResponse{
		LoanID:           loan.ID().String(),
		InstallmentsPaid: len(allocation.Paid),
		AmountCollected:  allocation.Collected,
		LoanFullyPaid:    loan.Paid(),
	}, nil
}
