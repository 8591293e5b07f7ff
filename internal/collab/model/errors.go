package model

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable code callers translate to a transport rejection.
type ErrorCode string

const (
	CodeInsufficientRole ErrorCode = "INSUFFICIENT_ROLE"
	CodeNotMember        ErrorCode = "NOT_MEMBER"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AccessError is an authorization denial. Never retried.
type AccessError struct {
	Code    ErrorCode
	Message string
}

func (e *AccessError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewAccessError(code ErrorCode, format string, args ...any) *AccessError {
	return &AccessError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation is a rejected membership transition.
type InvariantViolation struct {
	Invariant string
	Message   string
}

func (e *InvariantViolation) Error() string {
	return e.Invariant + ": " + e.Message
}

// InfrastructureError wraps store or network failures.
type InfrastructureError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *InfrastructureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing room, user, membership or message.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

var ErrUnauthorized = errors.New("caller identity required")

// CodeOf maps any error produced by the core to its code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var accessErr *AccessError
	var validationErr *ValidationError
	var invariantErr *InvariantViolation
	var notFoundErr *NotFoundError
	var infraErr *InfrastructureError
	var detail *ErrorDetail

	switch {
	case errors.As(err, &accessErr):
		return accessErr.Code
	case errors.As(err, &validationErr), errors.As(err, &invariantErr):
		return CodeInvalidRequest
	case errors.As(err, &notFoundErr):
		return CodeNotFound
	case errors.As(err, &infraErr):
		return CodeUnavailable
	case errors.As(err, &detail):
		return ErrorCode(detail.Code)
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	}
	return CodeInternal
}

// IsRetryable reports whether err is an infrastructure failure safe to retry for reads.
func IsRetryable(err error) bool {
	var infraErr *InfrastructureError
	return errors.As(err, &infraErr) && infraErr.Retryable
}
