package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{"NOT_FOUND", http.StatusNotFound},
		{"LOCK_CONFLICT", http.StatusConflict},
		{"DUPLICATE_PAYMENT", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{"INSUFFICIENT_CLEARANCE", http.StatusUnprocessableEntity},
		{"CHARGE_UNDETERMINED", http.StatusUnprocessableEntity},
		{"NOTHING_APPLIED", http.StatusUnprocessableEntity},
		{"INVALID_BRIDGE", http.StatusUnprocessableEntity},
		{"INVALID_ALLOCATION_INPUT", http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Prefix fallbacks for codes outside the explicit map
		{"INVALID_CUSTOMER", http.StatusBadRequest},
		{"RECEIVABLE_NOT_FOUND", http.StatusNotFound},
		{"ALREADY_CONFIRMED", http.StatusConflict},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("NOT_FOUND", "Receivable not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "Receivable not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "must be greater than zero"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
