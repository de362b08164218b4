package apperrors

import (
	"errors"
	"fmt"
)

var (
	Is = errors.Is
	As = errors.As
)

// AppError carries a stable code next to a user-safe message.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

// Message returns the message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

func New(code, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Wrap keeps the code of an existing AppError, otherwise the result is INTERNAL.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return New(appErr.Code(), message, err)
	}
	return New(CodeInternal, message, err)
}

func NotFound(format string, args ...any) *AppError {
	return New(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

func InvalidState(format string, args ...any) *AppError {
	return New(CodeInvalidState, fmt.Sprintf(format, args...), nil)
}

func Validation(format string, args ...any) *AppError {
	return New(CodeValidation, fmt.Sprintf(format, args...), nil)
}

func InsufficientBalance(format string, args ...any) *AppError {
	return New(CodeInsufficientBalance, fmt.Sprintf(format, args...), nil)
}

func InsufficientPendingBalance(format string, args ...any) *AppError {
	return New(CodeInsufficientPendingBalance, fmt.Sprintf(format, args...), nil)
}

func SignatureMismatch(format string, args ...any) *AppError {
	return New(CodeSignatureMismatch, fmt.Sprintf(format, args...), nil)
}

func Upstream(err error, format string, args ...any) *AppError {
	return New(CodeUpstreamProvider, fmt.Sprintf(format, args...), err)
}

func Unauthenticated(message string) *AppError {
	return New(CodeUnauthenticated, message, nil)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, nil)
}

func Internal(err error, message string) *AppError {
	return New(CodeInternal, message, err)
}

// CodeOf returns the code of the first AppError in the chain, or INTERNAL.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeInternal
}

func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool     { return HasCode(err, CodeNotFound) }
func IsInvalidState(err error) bool { return HasCode(err, CodeInvalidState) }
func IsValidation(err error) bool   { return HasCode(err, CodeValidation) }
