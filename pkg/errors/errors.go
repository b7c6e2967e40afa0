package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error codes shared across the service layer and the HTTP boundary
const (
	CodeConfiguration   = "AI_CONFIGURATION_ERROR"
	CodeProvider        = "AI_PROVIDER_ERROR"
	CodeConflict        = "CONFLICT"
	CodeStorageTimeout  = "STORAGE_TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeForbidden       = "FORBIDDEN"
	CodeUnauthenticated = "AUTH_REQUIRED"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithCause records the error that triggered this one
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

// NewUnauthorizedError creates a 401 Unauthorized error
func NewUnauthorizedError(code string, message string) *AppError {
	return NewError(http.StatusUnauthorized, code, message)
}

// NewForbiddenError creates a 403 Forbidden error
func NewForbiddenError(code string, message string) *AppError {
	return NewError(http.StatusForbidden, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code string, message string) *AppError {
	return NewError(http.StatusConflict, code, message)
}

// NewTooManyRequestsError creates a 429 Too Many Requests error
func NewTooManyRequestsError(code string, message string) *AppError {
	return NewError(http.StatusTooManyRequests, code, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// NewConfigurationError creates a 500 error for a service that cannot be built
// from the current configuration
func NewConfigurationError(message string, cause error) *AppError {
	return NewError(http.StatusInternalServerError, CodeConfiguration, message).WithCause(cause)
}

// NewProviderError creates a 502 error for a failed call to a remote provider.
// The cause text is part of the message; the cause itself is kept for logging.
func NewProviderError(message string, cause error) *AppError {
	msg := message
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	return NewError(http.StatusBadGateway, CodeProvider, msg).WithCause(cause)
}

// NewStorageTimeoutError creates a 504 error for a storage call that was
// cancelled or ran past its deadline
func NewStorageTimeoutError(cause error) *AppError {
	return NewError(http.StatusGatewayTimeout, CodeStorageTimeout, "Storage operation timed out").WithCause(cause)
}

// Is checks if err is, or wraps, an AppError with the same code as target
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code
}

// HasCode reports whether err is, or wraps, an AppError with the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// HasStatus reports whether err is, or wraps, an AppError with the given HTTP status
func HasStatus(err error, status int) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.StatusCode == status
}
