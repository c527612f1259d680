// Package apperr defines the structured errors surfaced by the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Request validation
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeMissingField     = "MISSING_FIELD"

	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"

	// Generative tier
	CodeAIUnavailable = "AI_UNAVAILABLE"
	CodeAIMalformed   = "AI_MALFORMED"

	// Infrastructure
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeQueueError      = "QUEUE_ERROR"
	CodeServiceNotReady = "SERVICE_NOT_READY"
	CodeRateLimited     = "RATE_LIMITED"

	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError carries a stable code and the HTTP status it maps to.
// Err is the underlying cause and is never serialized.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an error with no cause.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func withField(code, message, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

func InvalidInput(field, reason string) *AppError {
	return withField(CodeInvalidInput, fmt.Sprintf("invalid input for '%s': %s", field, reason), field)
}

func MissingField(field string) *AppError {
	return withField(CodeMissingField, "missing required field: "+field, field)
}

// DatabaseError wraps a customer store failure.
func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: "database error: " + operation,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// QueueError wraps a stream publish failure. The caller may retry.
func QueueError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeQueueError,
		Message: "queue error: " + operation,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func NotReady(component string) *AppError {
	return &AppError{
		Code:    CodeServiceNotReady,
		Message: component + " not ready",
		Status:  http.StatusServiceUnavailable,
		Details: map[string]any{"component": component},
	}
}

func ConfigError(message string) *AppError {
	return New(CodeConfigError, message, http.StatusInternalServerError)
}

// ErrRateLimited is shared; do not mutate.
var ErrRateLimited = New(CodeRateLimited, "too many requests", http.StatusTooManyRequests)

// AsAppError returns the AppError in err's chain, or an INTERNAL_ERROR wrapping err.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// GetHTTPStatus maps err to a status code, 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
