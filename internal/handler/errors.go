// internal/handler/errors.go
package handler

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
	"github.com/SyedDaiam9101/tl-detector/internal/preprocess"
)

// grpcError maps known internal errors to appropriate gRPC status errors
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, frame.ErrDecode),
		errors.Is(err, frame.ErrUnsupportedEncoding),
		errors.Is(err, frame.ErrShortBuffer),
		errors.Is(err, preprocess.ErrFrameTooSmall),
		errors.Is(err, preprocess.ErrEmptyFrame):
		return status.Errorf(codes.InvalidArgument, "invalid frame: %v", err)

	case errors.Is(err, classifier.ErrNotReady):
		return status.Errorf(codes.FailedPrecondition, "classifier not ready")

	case errors.Is(err, classifier.ErrClosed):
		return status.Errorf(codes.FailedPrecondition, "classifier closed")

	case errors.Is(err, classifier.ErrContractViolation):
		return status.Errorf(codes.Internal, "model output violated its contract: %v", err)

	case errors.Is(err, inference.ErrInference):
		return status.Errorf(codes.Internal, "inference execution failed: %v", err)

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

// httpStatus translates a gRPC code for the HTTP classify endpoint
func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition, codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// invalidArgumentError creates an InvalidArgument gRPC error
func invalidArgumentError(format string, args ...interface{}) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// failedPreconditionError creates a FailedPrecondition gRPC error
func failedPreconditionError(format string, args ...interface{}) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}
