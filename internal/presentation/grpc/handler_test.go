package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/installment-lending/internal/application/dto"
	"github.com/bibbank/installment-lending/internal/domain/apperror"
	"github.com/bibbank/installment-lending/pkg/auth"
)

var (
	ownerID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	otherID   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	loanID    = uuid.MustParse("00000000-0000-0000-0000-000000000100")
	createdAt = time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)
)

type stubOriginator struct {
	req dto.OriginateLoanRequest
	err error
}

func (s *stubOriginator) Execute(ctx context.Context, req dto.OriginateLoanRequest) (dto.LoanResponse, error) {
	s.req = req
	if s.err != nil {
		return dto.LoanResponse{}, s.err
	}
	return sampleLoan(), nil
}

type stubSettler struct {
	called bool
	req    dto.SettlePaymentRequest
	err    error
}

func (s *stubSettler) Execute(ctx context.Context, req dto.SettlePaymentRequest) (dto.PaymentResponse, error) {
	s.called = true
	s.req = req
	if s.err != nil {
		return dto.PaymentResponse{}, s.err
	}
	return dto.PaymentResponse{
		LoanID:           req.LoanID.String(),
		InstallmentsPaid: 1,
		AmountCollected:  decimal.RequireFromString("199.97"),
	}, nil
}

type stubGetter struct {
	err error
}

func (s stubGetter) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanResponse, error) {
	if s.err != nil {
		return dto.LoanResponse{}, s.err
	}
	return sampleLoan(), nil
}

type stubLister struct{}

func (stubLister) Execute(ctx context.Context, req dto.ListCustomerLoansRequest) (dto.ListLoansResponse, error) {
	l := sampleLoan()
	l.Installments = nil
	return dto.ListLoansResponse{Loans: []dto.LoanResponse{l}}, nil
}

type stubInstallments struct{}

func (stubInstallments) Execute(ctx context.Context, req dto.ListLoanInstallmentsRequest) (dto.ListInstallmentsResponse, error) {
	return dto.ListInstallmentsResponse{Installments: sampleLoan().Installments}, nil
}

func sampleLoan() dto.LoanResponse {
	paidOn := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return dto.LoanResponse{
		ID:               loanID.String(),
		CustomerID:       ownerID.String(),
		Principal:        decimal.NewFromInt(1000),
		InterestRate:     decimal.RequireFromString("0.2"),
		TotalPayable:     decimal.NewFromInt(1200),
		InstallmentCount: 2,
		Status:           "ACTIVE",
		CreatedAt:        createdAt,
		Installments: []dto.InstallmentResponse{
			{
				ID: uuid.NewString(), LoanID: loanID.String(), Sequence: 1,
				Amount: decimal.NewFromInt(600), PaidAmount: decimal.NewFromInt(600),
				DueDate: paidOn, PaymentDate: &paidOn, Paid: true,
			},
			{
				ID: uuid.NewString(), LoanID: loanID.String(), Sequence: 2,
				Amount: decimal.NewFromInt(600), PaidAmount: decimal.Zero,
				DueDate: paidOn.AddDate(0, 1, 0),
			},
		},
	}
}

type handlerFixture struct {
	originate *stubOriginator
	settle    *stubSettler
	getter    stubGetter
}

func (f *handlerFixture) handler() *LendingHandler {
	return NewLendingHandler(f.originate, f.settle, f.getter, stubLister{}, stubInstallments{})
}

func newHandlerFixture() *handlerFixture {
	return &handlerFixture{originate: &stubOriginator{}, settle: &stubSettler{}}
}

func asCustomer(id uuid.UUID) context.Context {
	return auth.ContextWithClaims(context.Background(), &auth.Claims{CustomerID: id, Roles: []string{auth.RoleCustomer}})
}

func asAdmin() context.Context {
	return auth.ContextWithClaims(context.Background(), &auth.Claims{Roles: []string{auth.RoleAdmin}})
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "not a status error: %v", err)
	assert.Equal(t, want, st.Code(), st.Message())
}

func TestLendingHandler_OriginateLoan(t *testing.T) {
	valid := func() *OriginateLoanRequest {
		return &OriginateLoanRequest{
			CustomerID:       ownerID.String(),
			Amount:           "1000",
			InterestRate:     "0.2",
			InstallmentCount: 6,
		}
	}

	t.Run("customer originates for themselves", func(t *testing.T) {
		f := newHandlerFixture()
		resp, err := f.handler().OriginateLoan(asCustomer(ownerID), valid())

		require.NoError(t, err)
		assert.Equal(t, loanID.String(), resp.Loan.ID)
		assert.Equal(t, "1200.00", resp.Loan.TotalPayable)
		assert.Equal(t, "2024-02-10T09:00:00Z", resp.Loan.CreatedAt)
		require.Len(t, resp.Loan.Installments, 2)
		assert.Equal(t, "2024-03-01", resp.Loan.Installments[0].PaymentDate)
		assert.Empty(t, resp.Loan.Installments[1].PaymentDate)
		assert.Equal(t, ownerID, f.originate.req.CustomerID)
		assert.True(t, decimal.RequireFromString("0.2").Equal(f.originate.req.InterestRate))
	})

	t.Run("admin originates for anyone", func(t *testing.T) {
		f := newHandlerFixture()
		_, err := f.handler().OriginateLoan(asAdmin(), valid())
		assert.NoError(t, err)
	})

	t.Run("customer cannot originate for someone else", func(t *testing.T) {
		f := newHandlerFixture()
		_, err := f.handler().OriginateLoan(asCustomer(otherID), valid())
		requireCode(t, err, codes.PermissionDenied)
	})

	t.Run("rejects malformed requests", func(t *testing.T) {
		mutations := map[string]func(r *OriginateLoanRequest){
			"missing customer": func(r *OriginateLoanRequest) { r.CustomerID = "" },
			"bad customer":     func(r *OriginateLoanRequest) { r.CustomerID = "abc" },
			"bad amount":       func(r *OriginateLoanRequest) { r.Amount = "ten" },
			"zero amount":      func(r *OriginateLoanRequest) { r.Amount = "0" },
			"negative rate":    func(r *OriginateLoanRequest) { r.InterestRate = "-0.1" },
			"zero count":       func(r *OriginateLoanRequest) { r.InstallmentCount = 0 },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				req := valid()
				mutate(req)
				_, err := newHandlerFixture().handler().OriginateLoan(asAdmin(), req)
				requireCode(t, err, codes.InvalidArgument)
			})
		}
	})

	t.Run("maps business errors", func(t *testing.T) {
		tests := []struct {
			err  error
			want codes.Code
		}{
			{apperror.LoanAmountTooLow(decimal.NewFromInt(1000)), codes.InvalidArgument},
			{fmt.Errorf("reserve credit: %w", apperror.CustomerNotFound(ownerID)), codes.NotFound},
			{fmt.Errorf("reserve credit: %w", apperror.ErrInsufficientCreditLimit), codes.FailedPrecondition},
			{errors.New("connection refused"), codes.Internal},
			{context.DeadlineExceeded, codes.DeadlineExceeded},
		}
		for _, tt := range tests {
			f := newHandlerFixture()
			f.originate.err = tt.err
			_, err := f.handler().OriginateLoan(asAdmin(), valid())
			requireCode(t, err, tt.want)
		}
	})

	t.Run("business code is in the status message", func(t *testing.T) {
		f := newHandlerFixture()
		f.originate.err = apperror.ErrInsufficientCreditLimit
		_, err := f.handler().OriginateLoan(asAdmin(), valid())
		assert.Contains(t, status.Convert(err).Message(), apperror.CodeInsufficientCreditLimit)
	})

	t.Run("internal errors are opaque", func(t *testing.T) {
		f := newHandlerFixture()
		f.originate.err = errors.New("pq: password authentication failed")
		_, err := f.handler().OriginateLoan(asAdmin(), valid())
		assert.NotContains(t, status.Convert(err).Message(), "password")
	})

	t.Run("requires claims", func(t *testing.T) {
		_, err := newHandlerFixture().handler().OriginateLoan(context.Background(), valid())
		requireCode(t, err, codes.Unauthenticated)
	})
}

func TestLendingHandler_SettlePayment(t *testing.T) {
	req := &SettlePaymentRequest{LoanID: loanID.String(), Amount: "200"}

	t.Run("owner pays", func(t *testing.T) {
		f := newHandlerFixture()
		resp, err := f.handler().SettlePayment(asCustomer(ownerID), req)

		require.NoError(t, err)
		assert.Equal(t, 1, resp.InstallmentsPaid)
		assert.Equal(t, "199.97", resp.AmountCollected)
	})

	t.Run("other customer is denied before settling", func(t *testing.T) {
		f := newHandlerFixture()
		_, err := f.handler().SettlePayment(asCustomer(otherID), req)

		requireCode(t, err, codes.PermissionDenied)
		assert.False(t, f.settle.called)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newHandlerFixture()
		f.getter.err = fmt.Errorf("find loan: %w", apperror.LoanNotFound(loanID))
		_, err := f.handler().SettlePayment(asAdmin(), req)
		requireCode(t, err, codes.NotFound)
	})

	t.Run("paid loan", func(t *testing.T) {
		f := newHandlerFixture()
		f.settle.err = apperror.ErrLoanAlreadyPaid
		_, err := f.handler().SettlePayment(asAdmin(), req)
		requireCode(t, err, codes.FailedPrecondition)
	})

	t.Run("forwards the payment id", func(t *testing.T) {
		f := newHandlerFixture()
		_, err := f.handler().SettlePayment(asAdmin(), &SettlePaymentRequest{LoanID: loanID.String(), Amount: "200", PaymentID: " pay-7 "})

		require.NoError(t, err)
		assert.Equal(t, "pay-7", f.settle.req.PaymentID)
	})

	t.Run("repeated payment id", func(t *testing.T) {
		f := newHandlerFixture()
		f.settle.err = apperror.PaymentAlreadyProcessed("pay-7")
		_, err := f.handler().SettlePayment(asAdmin(), req)
		requireCode(t, err, codes.AlreadyExists)
	})

	t.Run("ledger inconsistency is internal", func(t *testing.T) {
		f := newHandlerFixture()
		f.settle.err = fmt.Errorf("release: %w: %w", apperror.ErrLedgerInconsistent, apperror.CustomerNotFound(ownerID))
		_, err := f.handler().SettlePayment(asAdmin(), req)
		requireCode(t, err, codes.Internal)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := newHandlerFixture().handler().SettlePayment(asAdmin(), &SettlePaymentRequest{LoanID: loanID.String(), Amount: "-1"})
		requireCode(t, err, codes.InvalidArgument)
	})
}

func TestLendingHandler_Queries(t *testing.T) {
	h := newHandlerFixture().handler()

	t.Run("get loan", func(t *testing.T) {
		resp, err := h.GetLoan(asCustomer(ownerID), &GetLoanRequest{LoanID: loanID.String()})
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", resp.Loan.Status)

		_, err = h.GetLoan(asCustomer(otherID), &GetLoanRequest{LoanID: loanID.String()})
		requireCode(t, err, codes.PermissionDenied)
	})

	t.Run("list customer loans", func(t *testing.T) {
		resp, err := h.ListCustomerLoans(asCustomer(ownerID), &ListCustomerLoansRequest{CustomerID: ownerID.String()})
		require.NoError(t, err)
		require.Len(t, resp.Loans, 1)
		assert.Empty(t, resp.Loans[0].Installments)

		_, err = h.ListCustomerLoans(asCustomer(ownerID), &ListCustomerLoansRequest{CustomerID: otherID.String()})
		requireCode(t, err, codes.PermissionDenied)
	})

	t.Run("list installments", func(t *testing.T) {
		resp, err := h.ListLoanInstallments(asAdmin(), &ListLoanInstallmentsRequest{LoanID: loanID.String()})
		require.NoError(t, err)
		require.Len(t, resp.Installments, 2)
		assert.Equal(t, "600.00", resp.Installments[0].Amount)
		assert.Equal(t, "2024-04-01", resp.Installments[1].DueDate)

		_, err = h.ListLoanInstallments(asAdmin(), &ListLoanInstallmentsRequest{LoanID: "not-a-uuid"})
		requireCode(t, err, codes.InvalidArgument)
	})
}
