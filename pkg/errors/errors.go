package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthenticated indicates the caller holds no valid session.
	// Expected during probes; never retried and never logged as an error.
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"

	// ErrorTypeTransient indicates a network or 5xx failure that may
	// succeed on retry
	ErrorTypeTransient ErrorType = "TRANSIENT"

	// ErrorTypeRefreshFailed indicates a session refresh failed; terminal
	// for the session
	ErrorTypeRefreshFailed ErrorType = "REFRESH_FAILED"

	// ErrorTypeBackendUnavailable indicates the marketplace backend could
	// not serve a search request
	ErrorTypeBackendUnavailable ErrorType = "BACKEND_UNAVAILABLE"

	// ErrorTypeInternal indicates an internal gateway error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthenticated,
		Message: message,
	}
}

// NewTransientError creates a new transient transport error
func NewTransientError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransient,
		Message: message,
		Err:     err,
	}
}

// NewRefreshFailedError creates a new refresh failure error
func NewRefreshFailedError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRefreshFailed,
		Message: message,
		Err:     err,
	}
}

// NewBackendUnavailableError creates a new backend unavailable error
func NewBackendUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeBackendUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsUnauthenticated reports whether err means "no valid session"
func IsUnauthenticated(err error) bool {
	return IsType(err, ErrorTypeUnauthenticated)
}

// IsTransient reports whether err is a retryable transport failure
func IsTransient(err error) bool {
	return IsType(err, ErrorTypeTransient)
}

// IsRefreshFailed reports whether err is a terminal session refresh failure
func IsRefreshFailed(err error) bool {
	return IsType(err, ErrorTypeRefreshFailed)
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsBackendUnavailable reports whether err means the backend could not be
// reached for a search
func IsBackendUnavailable(err error) bool {
	return IsType(err, ErrorTypeBackendUnavailable)
}
