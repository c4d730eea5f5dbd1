// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Transport errors
	ErrFetchFailed = &Error{Code: "FETCH_FAILED", Message: "remote fetch failed"}

	// File errors
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "file not found"}
	ErrStorage      = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}
	ErrNoInputFiles = &Error{Code: "NO_INPUT_FILES", Message: "no raw files to process"}

	// Calendar errors
	ErrCalendarMissing = &Error{Code: "CALENDAR_MISSING", Message: "trading calendar not persisted"}
	ErrNoTradingDay    = &Error{Code: "NO_TRADING_DAY", Message: "no trading day within lookback window"}

	// Transform errors
	ErrSchemaMismatch = &Error{Code: "SCHEMA_MISMATCH", Message: "unexpected table layout"}
	ErrCoercion       = &Error{Code: "COERCION_FAILED", Message: "value could not be coerced"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
