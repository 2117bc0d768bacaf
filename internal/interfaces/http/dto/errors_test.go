package dto

import (
	"net/http"
	"testing"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"", http.StatusOK},
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeTenantNotFound, http.StatusNotFound},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeInvalidTransition, http.StatusConflict},
		{shared.CodeConcurrency, http.StatusConflict},
		{shared.CodeRecordProcessing, http.StatusUnprocessableEntity},
		{shared.CodeStorage, http.StatusInternalServerError},
		{shared.CodeInternal, http.StatusInternalServerError},
		{shared.CodeDeadlineExceeded, http.StatusGatewayTimeout},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(shared.CodeStorage))
	assert.True(t, IsRetryable(shared.CodeDeadlineExceeded))
	assert.True(t, IsRetryable(shared.CodeConcurrency))
	assert.False(t, IsRetryable(shared.CodeValidation))
	assert.False(t, IsRetryable(shared.CodeInvalidTransition))
	assert.False(t, IsRetryable(""))
}
