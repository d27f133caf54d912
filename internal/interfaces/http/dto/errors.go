package dto

import (
	"net/http"
	"strings"
)

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// ErrorCodeHTTPStatus maps domain and transport error codes to HTTP status
// codes. Settlement codes that callers retry (lock and duplicate conflicts)
// map to 409, business rule rejections to 422.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeConflict:    http.StatusConflict,

	"NOT_FOUND":      http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,
	"UNAUTHORIZED":   http.StatusUnauthorized,

	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"LOCK_CONFLICT":        http.StatusConflict,
	"DUPLICATE_PAYMENT":    http.StatusConflict,

	"INVALID_STATE":          http.StatusUnprocessableEntity,
	"CHARGE_UNDETERMINED":    http.StatusUnprocessableEntity,
	"NOTHING_APPLIED":        http.StatusUnprocessableEntity,
	"INSUFFICIENT_CLEARANCE": http.StatusUnprocessableEntity,
	"INVALID_BRIDGE":         http.StatusUnprocessableEntity,
	"EXCEEDS_DUE":            http.StatusUnprocessableEntity,
	"EXCEEDS_OUTSTANDING":    http.StatusUnprocessableEntity,
	"NO_VARIANCE":            http.StatusUnprocessableEntity,

	"INVALID_ALLOCATION_INPUT": http.StatusBadRequest,
	"INVALID_INPUT":            http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code. Codes not in
// the explicit map fall back on their prefix: INVALID_* input rejections map
// to 400, *_NOT_FOUND to 404, ALREADY_* to 409, everything else to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "ALREADY_"):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
