package apperrors

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var httpStatusByCode = map[string]int{
	CodeNotFound:                   http.StatusNotFound,
	CodeInvalidState:               http.StatusConflict,
	CodeInsufficientBalance:        http.StatusBadRequest,
	CodeInsufficientPendingBalance: http.StatusBadRequest,
	CodeValidation:                 http.StatusBadRequest,
	CodeSignatureMismatch:          http.StatusBadRequest,
	CodeUpstreamProvider:           http.StatusBadGateway,
	CodeUnauthenticated:            http.StatusUnauthorized,
	CodeForbidden:                  http.StatusForbidden,
	CodeInternal:                   http.StatusInternalServerError,
}

var grpcCodeByCode = map[string]codes.Code{
	CodeNotFound:                   codes.NotFound,
	CodeInvalidState:               codes.FailedPrecondition,
	CodeInsufficientBalance:        codes.FailedPrecondition,
	CodeInsufficientPendingBalance: codes.FailedPrecondition,
	CodeValidation:                 codes.InvalidArgument,
	CodeSignatureMismatch:          codes.InvalidArgument,
	CodeUpstreamProvider:           codes.Unavailable,
	CodeUnauthenticated:            codes.Unauthenticated,
	CodeForbidden:                  codes.PermissionDenied,
	CodeInternal:                   codes.Internal,
}

// HTTPStatus maps an error to the status the API answers with.
func HTTPStatus(err error) int {
	if s, ok := httpStatusByCode[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// PublicMessage hides internal causes from callers.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code() != CodeInternal {
		return appErr.Message()
	}
	return "internal server error"
}

// ToGRPC converts an error into a grpc status error.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	c, ok := grpcCodeByCode[CodeOf(err)]
	if !ok {
		c = codes.Internal
	}
	return status.Error(c, PublicMessage(err))
}

// LogError logs client errors at warn level and everything else at error level.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.String("code", CodeOf(err)), zap.Error(err))
	if HTTPStatus(err) >= http.StatusInternalServerError {
		logger.Error(msg, fields...)
		return
	}
	logger.Warn(msg, fields...)
}
