// Package errors defines the application error taxonomy: validation,
// not-found, authorization, policy and infrastructure errors, each carrying
// an HTTP status and a stable business code.
package errors

import (
	"fmt"
	"net/http"

	"aegis/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Validation errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"input validation failed",
		"",
	)

	ErrInvalidEncoding = NewBaseError(
		http.StatusBadRequest,
		"INVALID_ENCODING",
		"value is not valid base64",
		"",
	)

	// Not-found errors
	ErrRefreshTokenNotFound = NewBaseError(
		http.StatusNotFound,
		"REFRESH_TOKEN_NOT_FOUND",
		"refresh token not found or no longer active",
		"",
	)

	ErrChallengeNotFound = NewBaseError(
		http.StatusNotFound,
		"CHALLENGE_NOT_FOUND",
		"challenge not found or expired",
		"",
	)

	ErrCredentialNotFound = NewBaseError(
		http.StatusNotFound,
		"CREDENTIAL_NOT_FOUND",
		"no active credential registered for this device",
		"",
	)

	ErrTenantConfigNotFound = NewBaseError(
		http.StatusNotFound,
		"TENANT_CONFIG_NOT_FOUND",
		"tenant configuration not found",
		"",
	)

	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"user not found",
		"",
	)

	// Authorization errors
	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"request is not authorized",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"identifier or secret is incorrect",
		"",
	)

	ErrInvalidState = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_STATE",
		"challenge state does not match this request",
		"",
	)

	ErrInvalidSignature = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_SIGNATURE",
		"signature verification failed",
		"",
	)

	ErrInvalidPublicKey = NewBaseError(
		http.StatusBadRequest,
		"INVALID_PUBLIC_KEY",
		"public key is not a valid EC P-256 key",
		"",
	)

	ErrInvalidClient = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CLIENT",
		"client is unknown or not first-party",
		"",
	)

	ErrInvalidScope = NewBaseError(
		http.StatusForbidden,
		"INVALID_SCOPE",
		"requested scope is not allowed for this client",
		"",
	)

	// Policy errors
	ErrMfaFactorNotSupported = NewBaseError(
		http.StatusConflict,
		"MFA_FACTOR_NOT_SUPPORTED",
		"a factor of this category is already present on the session",
		"",
	)

	ErrMfaFactorAlreadyEnrolled = NewBaseError(
		http.StatusConflict,
		"MFA_FACTOR_ALREADY_ENROLLED",
		"this factor is already enrolled",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"resource not found",
		"",
	)
)

// MaxAttemptsError is returned when a block flow has reached its attempt
// threshold. RetryAfter is the epoch second at which the block lifts.
type MaxAttemptsError struct {
	RetryAfter int64
}

// NewMaxAttemptsError creates a MaxAttemptsError unblocking at the given epoch second.
func NewMaxAttemptsError(retryAfter int64) *MaxAttemptsError {
	return &MaxAttemptsError{RetryAfter: retryAfter}
}

// Error implements the error interface
func (e *MaxAttemptsError) Error() string {
	return "maximum attempts exceeded"
}

// HTTPCode returns the HTTP status code
func (e *MaxAttemptsError) HTTPCode() int {
	return http.StatusTooManyRequests
}

// ErrorCode returns the business error code
func (e *MaxAttemptsError) ErrorCode() string {
	return "MAX_ATTEMPTS_EXCEEDED"
}

// Message returns the user-friendly error message
func (e *MaxAttemptsError) Message() string {
	return "too many failed attempts, try again later"
}

// Details returns detailed error information
func (e *MaxAttemptsError) Details() string {
	return fmt.Sprintf("retry_after=%d", e.RetryAfter)
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// IsCredentialMismatch reports whether err is a wrong-credentials failure.
// Only these failures feed the brute-force counter; validation and
// infrastructure errors pass through without affecting attempt counts.
func IsCredentialMismatch(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
