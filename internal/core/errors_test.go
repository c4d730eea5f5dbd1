// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrCoercion, errors.New("LAST_PRICE \"abc\""))
	want := `[COERCION_FAILED] value could not be coerced: LAST_PRICE "abc"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrCalendarMissing, ErrCalendarMissing) {
		t.Error("same error should match")
	}
	if errors.Is(ErrCalendarMissing, ErrNoTradingDay) {
		t.Error("different codes should not match")
	}
}

func TestError_IsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("cleaning bhav: %w", WrapError(ErrSchemaMismatch, errors.New("columns differ")))
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Error("expected match through fmt wrapping")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrFetchFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrFetchFailed.Code {
		t.Error("code not preserved")
	}
}
