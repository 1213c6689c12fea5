package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrPermissionDenied
	ErrPreconditionFailed
	ErrDuplicate
	ErrConflict
	ErrUnauthorized
	ErrInternal
)

// String returns the symbolic name clients receive in the error envelope.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrValidation:
		return "VALIDATION"
	case ErrPermissionDenied:
		return "PERMISSION_DENIED"
	case ErrPreconditionFailed:
		return "PRECONDITION_FAILED"
	case ErrDuplicate:
		return "DUPLICATE"
	case ErrConflict:
		return "CONFLICT"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// AppError represents an application error. Fields is populated for
// validation errors only, keyed by the offending field name, so callers can
// render per-field messages without parsing Message.
type AppError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status. Consumed by the error
// middleware so handlers never translate errors themselves.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrPermissionDenied:
		return http.StatusForbidden
	case ErrPreconditionFailed:
		return http.StatusUnprocessableEntity
	case ErrDuplicate, ErrConflict:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

// NewValidation wraps a set of field-level problems. The set is returned
// whole so the caller can surface every problem at once.
func NewValidation(fields map[string]string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

func NewValidationField(field, problem string) *AppError {
	return NewValidation(map[string]string{field: problem})
}

func NewPermissionDenied(permission string) *AppError {
	return &AppError{
		Code:    ErrPermissionDenied,
		Message: fmt.Sprintf("permission denied: %s", permission),
	}
}

func NewPreconditionFailed(message string) *AppError {
	return &AppError{
		Code:    ErrPreconditionFailed,
		Message: message,
	}
}

func NewDuplicate(resource, key string) *AppError {
	return &AppError{
		Code:    ErrDuplicate,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

func NewConflict(resource string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("%s was modified concurrently", resource),
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From extracts the AppError from err, wrapping unknown errors as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
