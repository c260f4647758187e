package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// APIError represents a structured error for API responses.
// Includes a code, message, and HTTP status for consistent error handling.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError with the given code, message, and status.
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, Status: status}
}

// Predefined API errors for common scenarios.
var (
	ErrInvalidBody = NewAPIError("invalid_body_format", "unable to parse the request body", http.StatusUnprocessableEntity)
	// ErrInvalidCredentials is the only answer to a failed login, whether the
	// username is unknown or the password is wrong.
	ErrInvalidCredentials = NewAPIError("invalid_credentials", "Invalid username/password", http.StatusBadRequest)
	ErrValidationFailed   = NewAPIError("validation_failed", "the account could not be created", http.StatusBadRequest)
	ErrInvalidToken       = NewAPIError("invalid_token", "Invalid token", http.StatusUnauthorized)
	ErrExpiredToken       = NewAPIError("expired_token", "Expired token", http.StatusUnauthorized)
	ErrMissingToken       = NewAPIError("missing_token", "Missing or invalid Authorization header", http.StatusUnauthorized)
	ErrTooManyRequests    = NewAPIError("rate_limit_exceeded", "Too many requests. Please try again later.", http.StatusTooManyRequests)
	ErrInternalServer     = NewAPIError("internal_error", "Internal server error", http.StatusInternalServerError)
)

// IsUniqueViolation checks for unique constraint violation (Postgres).
// Used to detect duplicate usernames racing past the store's existence check.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "unique constraint")
}

// IsCheckConstraintViolation checks for check constraint violation (Postgres).
func IsCheckConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23514" // check_violation
}
