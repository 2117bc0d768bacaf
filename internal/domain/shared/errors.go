package shared

import (
	"errors"
	"fmt"
)

// Stable error codes exposed in ECAWebhookResponse.error.code
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeTenantNotFound    = "TENANT_NOT_FOUND"
	CodeInvalidTransition = "INVALID_STATE_TRANSITION"
	CodeStorage           = "STORAGE_ERROR"
	CodeRecordProcessing  = "RECORD_PROCESSING_ERROR"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
	CodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that wraps cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Retryable reports whether the caller may safely retry the request
func (e *DomainError) Retryable() bool {
	switch e.Code {
	case CodeStorage, CodeDeadlineExceeded, CodeConcurrency:
		return true
	}
	return false
}

// ErrorCodeOf extracts the domain error code from err, or CodeInternal
func ErrorCodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsErrorCode reports whether err carries the given domain error code
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrTenantNotFound      = NewDomainError(CodeTenantNotFound, "Organization not found or inactive")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrDeadlineExceeded    = NewDomainError(CodeDeadlineExceeded, "Request deadline exceeded")
)

// NewValidationError creates a VALIDATION_ERROR listing every violation
func NewValidationError(violations []FieldViolation) *DomainError {
	return NewDomainError(CodeValidation, "Payload failed schema validation").
		WithDetails(map[string]any{"violations": violations})
}

// NewStorageError wraps a persistence failure
func NewStorageError(op string, cause error) *DomainError {
	return WrapDomainError(CodeStorage, "Storage operation failed: "+op, cause)
}

// FieldViolation describes one schema violation
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}
