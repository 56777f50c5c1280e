package dto

import (
	"net/http"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// Generic error codes. Ledger specific codes (finance.Code*) are sent as is.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeUnavailable         = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeUnavailable:         http.StatusServiceUnavailable,

	finance.CodeInvalidReference:             http.StatusBadRequest,
	finance.CodeDuplicateActiveIncidentEvent: http.StatusConflict,
	finance.CodeDuplicateActiveBookingEvent:  http.StatusConflict,
	finance.CodeLockNotAcquired:              http.StatusConflict,
	finance.CodeBatchInProgress:              http.StatusConflict,
	finance.CodeNoEligibleCashflow:           http.StatusUnprocessableEntity,
	finance.CodeIncidentAlreadySettled:       http.StatusUnprocessableEntity,
	finance.CodeNonCancellablePricing:        http.StatusUnprocessableEntity,
	finance.CodeRuleUnavailable:              http.StatusServiceUnavailable,
	finance.CodeUnbalancedPricing:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the status of an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodes maps the shared domain error codes to their API form
var domainCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a shared domain code to its ERR_ form. Other
// codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if c, ok := domainCodes[code]; ok {
		return c
	}
	return code
}
