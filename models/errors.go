package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	// ErrCodeConfiguration covers an empty page list or a failed trainee
	// lookup. It is always raised before any page is processed.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeTransport is a request/response round-trip to the extraction
	// service that failed on every allowed attempt.
	ErrCodeTransport = "TRANSPORT_ERROR"

	// ErrCodeIntegrity is a vector returned with missing feature values.
	ErrCodeIntegrity = "INTEGRITY_ERROR"

	ErrCodeBrowser      = "BROWSER_ERROR"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeRunConflict  = "RUN_CONFLICT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CollectError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CollectError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CollectError) Unwrap() error {
	return e.Err
}

// NewCollectError creates a new CollectError.
func NewCollectError(code, message string, err error) *CollectError {
	return &CollectError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *CollectError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// HasCode reports whether err is, or wraps, a CollectError with the given code.
func HasCode(err error, code string) bool {
	var ce *CollectError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// DetailOf maps any error to an ErrorDetail, falling back to INTERNAL_ERROR
// for errors that carry no code.
func DetailOf(err error) *ErrorDetail {
	var ce *CollectError
	if errors.As(err, &ce) {
		return ce.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}
