// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All recoverable errors surfaced to the user must use AppError so that forms,
// the HTTP surface and the CLI report them the same way.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal      = "INTERNAL_ERROR"
	CodeDatabase      = "DATABASE_ERROR"
	CodeSessionClosed = "SESSION_CLOSED"

	// Configuration errors: malformed or conflicting tag metadata on an entity type
	CodeConfiguration = "CONFIGURATION_ERROR"

	// Validation errors (400)
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnsupportedCriterion = "UNSUPPORTED_CRITERION"
	CodeUnknownEntity        = "UNKNOWN_ENTITY"
	CodeBusinessRule         = "BUSINESS_RULE_VIOLATION"

	// UI wiring errors: a named control is missing from its container
	CodeFieldNotFound = "FIELD_NOT_FOUND"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeForeignKeyViolation = "FOREIGN_KEY_VIOLATION"
)

// AppError is the standard error type for the framework.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, entity, id, ...)
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

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidInput creates an error for a value that cannot be converted to the field type (400)
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConfiguration reports malformed entity metadata found while building its configuration.
func NewConfiguration(entity, field, message string) *AppError {
	e := &AppError{
		Code:       CodeConfiguration,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"entity": entity},
	}
	if field != "" {
		e.Details["field"] = field
	}
	return e
}

// NewUnsupportedCriterion is returned by dynamic search when a criterion cannot be
// turned into a predicate.
func NewUnsupportedCriterion(entity, field, reason string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedCriterion,
		Message:    fmt.Sprintf("cannot search %s by %s: %s", entity, field, reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"entity": entity, "field": field},
	}
}

// NewUnknownEntity is returned when no business object is registered under a name.
func NewUnknownEntity(name string) *AppError {
	return &AppError{
		Code:       CodeUnknownEntity,
		Message:    fmt.Sprintf("entity %s is not registered", name),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": name},
	}
}

// NewFieldNotFound reports a control missing from the form or filter container.
func NewFieldNotFound(field, container string) *AppError {
	return &AppError{
		Code:       CodeFieldNotFound,
		Message:    fmt.Sprintf("the field %s does not exist in %s", field, container),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"field": field, "container": container},
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

// NewForeignKeyViolation is the user-facing form of a referential-integrity failure.
func NewForeignKeyViolation(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeForeignKeyViolation,
		Message:    "The record is referenced by other records and cannot be changed this way",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewSessionClosed is returned by a business object used after Close.
func NewSessionClosed(entity string) *AppError {
	return &AppError{
		Code:       CodeSessionClosed,
		Message:    fmt.Sprintf("business object for %s is closed", entity),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"entity": entity},
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

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
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

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsForeignKeyViolation checks if error is CodeForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return HasCode(err, CodeForeignKeyViolation)
}

// IsConfiguration checks if error is CodeConfiguration
func IsConfiguration(err error) bool {
	return HasCode(err, CodeConfiguration)
}

// IsFieldNotFound checks if error is CodeFieldNotFound
func IsFieldNotFound(err error) bool {
	return HasCode(err, CodeFieldNotFound)
}

// IsRecoverable reports whether err is one of the user-facing classes
// (configuration, validation, constraint violation, missing control) as opposed
// to a store or infrastructure fault that must propagate to the caller.
func IsRecoverable(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeInternal, CodeDatabase, CodeSessionClosed:
		return false
	}
	return true
}
