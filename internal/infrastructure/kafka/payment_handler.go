package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/apperror"
	pkgkafka "github.com/bibbank/installment-lending/pkg/kafka"
)

// PaymentSettler is satisfied by usecase.SettlePaymentUseCase.
type PaymentSettler interface {
	Execute(ctx context.Context, req dto.SettlePaymentRequest) (dto.PaymentResponse, error)
}

// PaymentInstruction is the message body of the payment-instructions topic.
type PaymentInstruction struct {
	PaymentID string          `json:"payment_id"`
	LoanID    string          `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
}

var errInvalidInstruction = errors.New("invalid payment instruction")

func (p PaymentInstruction) toRequest() (dto.SettlePaymentRequest, error) {
	if strings.TrimSpace(p.PaymentID) == "" {
		return dto.SettlePaymentRequest{}, fmt.Errorf("%w: payment_id is required", errInvalidInstruction)
	}
	loanID, err := uuid.Parse(p.LoanID)
	if err != nil {
		return dto.SettlePaymentRequest{}, fmt.Errorf("%w: loan_id %q", errInvalidInstruction, p.LoanID)
	}
	if !p.Amount.IsPositive() {
		return dto.SettlePaymentRequest{}, fmt.Errorf("%w: amount must be positive, got %s", errInvalidInstruction, p.Amount)
	}
	return dto.SettlePaymentRequest{
		LoanID:    loanID,
		Amount:    p.Amount,
		PaymentID: strings.TrimSpace(p.PaymentID),
	}, nil
}

// NewPaymentInstructionHandler returns a consumer handler that settles each
// payment instruction against its loan. A redelivered instruction is
// recognised by its payment_id and acknowledged without settling again.
// Malformed instructions and business rejections are logged and
// acknowledged; any other failure is returned so the offset is not
// committed.
func NewPaymentInstructionHandler(settler PaymentSettler, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, msg pkgkafka.Message) error {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Headers))

		var instr PaymentInstruction
		if err := json.Unmarshal(msg.Value, &instr); err != nil {
			logger.WarnContext(ctx, "dropping undecodable payment instruction", "error", err)
			return nil
		}

		req, err := instr.toRequest()
		if err != nil {
			logger.WarnContext(ctx, "dropping payment instruction",
				"payment_id", instr.PaymentID,
				"error", err,
			)
			return nil
		}

		resp, err := settler.Execute(ctx, req)
		if err != nil {
			if errors.Is(err, apperror.ErrPaymentAlreadyProcessed) {
				logger.InfoContext(ctx, "payment instruction already applied",
					"payment_id", instr.PaymentID,
					"loan_id", instr.LoanID,
				)
				return nil
			}
			if _, ok := apperror.KindOf(err); ok && !errors.Is(err, apperror.ErrLedgerInconsistent) {
				logger.WarnContext(ctx, "payment instruction rejected",
					"payment_id", instr.PaymentID,
					"loan_id", instr.LoanID,
					"error", err,
				)
				return nil
			}
			return fmt.Errorf("settle payment %s: %w", instr.PaymentID, err)
		}

		logger.InfoContext(ctx, "payment instruction applied",
			"payment_id", instr.PaymentID,
			"loan_id", resp.LoanID,
			"installments_paid", resp.InstallmentsPaid,
		)
		return nil
	}
}
