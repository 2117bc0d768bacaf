// Package dto holds the HTTP-facing mapping of ECA results.
package dto

import (
	"net/http"

	"github.com/erp/eca/internal/domain/shared"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:        http.StatusBadRequest,
	shared.CodeTenantNotFound:    http.StatusNotFound,
	shared.CodeNotFound:          http.StatusNotFound,
	shared.CodeInvalidTransition: http.StatusConflict,
	shared.CodeConcurrency:       http.StatusConflict,
	shared.CodeRecordProcessing:  http.StatusUnprocessableEntity,
	shared.CodeStorage:           http.StatusInternalServerError,
	shared.CodeInternal:          http.StatusInternalServerError,
	shared.CodeDeadlineExceeded:  http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// An empty code is a success; unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if code == "" {
		return http.StatusOK
	}
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether a client may retry a request that failed with
// code unchanged
func IsRetryable(code string) bool {
	return (&shared.DomainError{Code: code}).Retryable()
}
