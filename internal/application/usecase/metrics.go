package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the business counters recorded by the lending use cases.
// A nil *Metrics records nothing.
type Metrics struct {
	loansOriginated  metric.Int64Counter
	paymentsSettled  metric.Int64Counter
	installmentsPaid metric.Int64Counter
	amountCollected  metric.Float64Counter
}

// NewMetrics registers the lending counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	loansOriginated, err := meter.Int64Counter("lending.loans.originated",
		metric.WithDescription("Number of loans originated"))
	if err != nil {
		return nil, fmt.Errorf("loans originated counter: %w", err)
	}
	paymentsSettled, err := meter.Int64Counter("lending.payments.settled",
		metric.WithDescription("Number of payments allocated against loans"))
	if err != nil {
		return nil, fmt.Errorf("payments settled counter: %w", err)
	}
	installmentsPaid, err := meter.Int64Counter("lending.installments.paid",
		metric.WithDescription("Number of installments settled"))
	if err != nil {
		return nil, fmt.Errorf("installments paid counter: %w", err)
	}
	amountCollected, err := meter.Float64Counter("lending.payments.collected",
		metric.WithDescription("Cash collected against installments"))
	if err != nil {
		return nil, fmt.Errorf("amount collected counter: %w", err)
	}
	return &Metrics{
		loansOriginated:  loansOriginated,
		paymentsSettled:  paymentsSettled,
		installmentsPaid: installmentsPaid,
		amountCollected:  amountCollected,
	}, nil
}

// NoopMetrics returns counters that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("lending"))
	return m
}

func (m *Metrics) loanOriginated(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.loansOriginated.Add(ctx, 1, metric.WithAttributes(attribute.Int("installment_count", count)))
}

func (m *Metrics) paymentSettled(ctx context.Context, installments int, collected float64, fullyPaid bool) {
	if m == nil {
		return
	}
	m.paymentsSettled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("loan_fully_paid", fullyPaid)))
	m.installmentsPaid.Add(ctx, int64(installments))
	m.amountCollected.Add(ctx, collected)
}
