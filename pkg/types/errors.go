package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
)

// ClinicError represents a structured error surfaced to API callers
type ClinicError struct {
	Type   ErrorType `json:"type"`
	Code   string    `json:"code"`
	Detail string    `json:"detail"`
	Cause  error     `json:"-"`
}

// Error implements the error interface
func (e *ClinicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap returns the underlying cause error
func (e *ClinicError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to an HTTP status code
func (e *ClinicError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeAuthorization:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a new validation error
func NewValidationError(code, detail string) *ClinicError {
	return &ClinicError{Type: ErrorTypeValidation, Code: code, Detail: detail}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, detail string) *ClinicError {
	return &ClinicError{Type: ErrorTypeAuthentication, Code: code, Detail: detail}
}

// NewPermissionError creates a new authorization error
func NewPermissionError(code, detail string) *ClinicError {
	return &ClinicError{Type: ErrorTypeAuthorization, Code: code, Detail: detail}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, detail string) *ClinicError {
	return &ClinicError{Type: ErrorTypeNotFound, Code: code, Detail: detail}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, detail string) *ClinicError {
	return &ClinicError{Type: ErrorTypeConflict, Code: code, Detail: detail}
}

// NewInternalError creates a new internal error
func NewInternalError(code, detail string, cause error) *ClinicError {
	return &ClinicError{Type: ErrorTypeInternal, Code: code, Detail: detail, Cause: cause}
}

// AsClinicError extracts a ClinicError from an error chain
func AsClinicError(err error) (*ClinicError, bool) {
	var ce *ClinicError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Common error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeEmailExists      = "EMAIL_EXISTS"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeAlreadyCancelled = "ALREADY_CANCELLED"
)
