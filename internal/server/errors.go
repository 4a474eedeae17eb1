package server

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

// errorBody is the JSON body of every transport error.
type errorBody struct {
	Error string `json:"error"`
}

// httpStatus maps an invocation error to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, skerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, skerrors.ErrSkillIDMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode maps an invocation error to a gRPC status code.
func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, skerrors.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, skerrors.ErrSkillIDMismatch):
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// toStatus converts err to a gRPC status error. Status errors pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(grpcCode(err), err.Error())
}
