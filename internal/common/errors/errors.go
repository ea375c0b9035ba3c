// Package errors provides standardized error handling for the feed pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQueryFailed         ErrorCode = "QUERY_FAILED"
	ErrCodeQueryTimeout        ErrorCode = "QUERY_TIMEOUT"
	ErrCodeParseFailed         ErrorCode = "PARSE_FAILED"
	ErrCodeGeocodingFailed     ErrorCode = "GEOCODING_FAILED"
	ErrCodeSuggestionsFailed   ErrorCode = "SUGGESTIONS_FAILED"
	ErrCodeCacheFailed         ErrorCode = "CACHE_FAILED"
	ErrCodeInvalidFilterFormat ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeInvalidCursor       ErrorCode = "INVALID_CURSOR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewQueryFailedError creates a retryable source-query error. Query failures
// degrade to an empty contribution at the call site; this error is logged,
// never surfaced to the client.
func NewQueryFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryFailed,
		Message:   "Source query failed",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(source string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Source query timeout",
		Details:   fmt.Sprintf("source: %s", source),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseFailedError creates a non-retryable field parse error. Parse
// failures degrade the specific field without discarding the record.
func NewParseFailedError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseFailed,
		Message:   fmt.Sprintf("Failed to parse field '%s'", field),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeocodingFailedError creates a retryable geocoding error. The pipeline
// proceeds without a reference location when geocoding fails.
func NewGeocodingFailedError(address string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodingFailed,
		Message:   "Geocoding lookup failed",
		Details:   fmt.Sprintf("address: %s, error: %s", address, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSuggestionsFailedError creates a retryable suggestion retrieval error.
func NewSuggestionsFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSuggestionsFailed,
		Message:   "Search suggestion retrieval failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheFailedError creates a retryable cache error.
func NewCacheFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailed,
		Message:   "Cache operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterFormatError creates a non-retryable filter format error.
// This is the only pipeline error surfaced to the client (HTTP 400).
func NewInvalidFilterFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilterFormat,
		Message:   "Invalid filter format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCursorError creates a non-retryable pagination cursor error.
func NewInvalidCursorError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCursor,
		Message:   "Invalid pagination cursor",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}

// CodeOf returns the ErrorCode of err, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StandardError); ok {
		return se.Code
	}
	return ""
}
