package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/installment-lending/internal/domain/apperror"
)

// toStatus maps use-case errors to gRPC status errors. Business errors carry
// their code in the message; anything else is reported as an opaque
// internal error.
func toStatus(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, "request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	if errors.Is(err, apperror.ErrLedgerInconsistent) {
		return status.Error(codes.Internal, "internal error")
	}

	var be *apperror.BusinessError
	if !errors.As(err, &be) {
		return status.Error(codes.Internal, "internal error")
	}
	switch be.Kind {
	case apperror.KindNotFound:
		return status.Error(codes.NotFound, be.Error())
	case apperror.KindInvalid:
		return status.Error(codes.InvalidArgument, be.Error())
	case apperror.KindFailedPrecondition:
		return status.Error(codes.FailedPrecondition, be.Error())
	case apperror.KindConflict:
		return status.Error(codes.AlreadyExists, be.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
