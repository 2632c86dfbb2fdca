// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the derivation engine
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule    = "BUSINESS_RULE_VIOLATION"
	CodeNoSourceLines   = "NO_PROCESSABLE_LINES"
	CodeZeroSubtotal    = "ZERO_VALUE_DOCUMENT"
	CodeMissingCrossRef = "MISSING_CROSS_REFERENCE"

	// Persistence errors, transient vs fatal
	CodeDuplicate        = "DUPLICATE_ENTRY"
	CodeNumberExhausted  = "NUMBER_GENERATION_EXHAUSTED"
	CodeAuditReference   = "AUDIT_REFERENCE_VIOLATION"
	CodeForeignKey       = "FOREIGN_KEY_VIOLATION"
	CodeConcurrentModify = "CONCURRENT_MODIFICATION"

	// Auth errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the engine.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400).
// Nothing is persisted when a validation error is surfaced.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNoSourceLines is returned when a derivation request resolves to an
// empty processable line set.
func NewNoSourceLines(sourceType string, sourceID any) *AppError {
	return &AppError{
		Code:       CodeNoSourceLines,
		Message:    "No processable lines in source document",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"source_type": sourceType, "source_id": sourceID},
	}
}

// NewZeroSubtotal is returned when every line was skipped or computed to
// zero and the recovery re-sum still yields a non-positive subtotal.
func NewZeroSubtotal(subtotal string) *AppError {
	return &AppError{
		Code:       CodeZeroSubtotal,
		Message:    "Derived document has zero or negative subtotal",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"subtotal": subtotal},
	}
}

// NewMissingCrossRef is returned for a mandatory cross-reference that is
// absent, e.g. a delivery with no linked order.
func NewMissingCrossRef(entity string, field string) *AppError {
	return &AppError{
		Code:       CodeMissingCrossRef,
		Message:    fmt.Sprintf("%s has no %s reference", entity, field),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "field": field},
	}
}

// NewDuplicate creates a duplicate entry error (409).
// Unique-number collisions surface through this code and are retried by
// the number generator before being escalated.
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewNumberExhausted is returned when the generator exhausts its retry
// limit without producing an unused number.
func NewNumberExhausted(prefix string, attempts int) *AppError {
	return &AppError{
		Code:       CodeNumberExhausted,
		Message:    "Document number generation exhausted retry limit",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"prefix": prefix, "attempts": attempts},
	}
}

// NewAuditReference is the classified, retryable violation of the optional
// created_by audit reference. The caller retries once with the reference
// nulled before escalating.
func NewAuditReference(constraint string, err error) *AppError {
	return &AppError{
		Code:       CodeAuditReference,
		Message:    "Audit reference does not exist",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"constraint": constraint},
		Err:        err,
	}
}

// NewForeignKey is a mandatory foreign-key violation. Fatal: the whole
// write is rolled back and no partial document remains.
func NewForeignKey(constraint string, err error) *AppError {
	return &AppError{
		Code:       CodeForeignKey,
		Message:    "Referenced record does not exist",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"constraint": constraint},
		Err:        err,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModify,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsDuplicate checks if error is CodeDuplicate
func IsDuplicate(err error) bool {
	return hasCode(err, CodeDuplicate)
}

// IsAuditReference checks if error is the retryable audit-FK classification
func IsAuditReference(err error) bool {
	return hasCode(err, CodeAuditReference)
}

// IsValidation checks if error is CodeValidation or one of the
// derivation-specific validation codes.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation) ||
		hasCode(err, CodeNoSourceLines) ||
		hasCode(err, CodeZeroSubtotal) ||
		hasCode(err, CodeMissingCrossRef)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
