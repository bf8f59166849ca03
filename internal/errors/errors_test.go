package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGridframeError_Error(t *testing.T) {
	err := New(ErrCategoryStore, CodeUploadFailed, "upload failed")
	expected := "[STORE:UPLOAD_FAILED] upload failed"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGridframeError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryStore, CodeUploadFailed, "upload failed", cause)
	expected := "[STORE:UPLOAD_FAILED] upload failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGridframeError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStore, CodeDecodeFailed, "bad blob", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestGridframeError_Is(t *testing.T) {
	err1 := New(ErrCategoryStore, CodeUploadFailed, "first")
	err2 := New(ErrCategoryStore, CodeUploadFailed, "second")
	err3 := New(ErrCategoryStore, CodeDownloadFailed, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStore, CodeUploadFailed, true},
		{ErrCategoryStore, CodeDownloadFailed, true},
		{ErrCategoryStore, CodeDeleteFailed, true},
		{ErrCategoryStore, CodeFrameNotFound, false},
		{ErrCategoryIndex, CodeIndexMissing, false},
		{ErrCategoryValidation, CodeTypeMismatch, false},
		{ErrCategoryValidation, CodeColumnMismatch, false},
		{ErrCategoryIndex, CodeNotMonotonic, false},
		{ErrCategoryIndex, CodeGapDetected, false},
		{ErrCategoryAggregation, CodeIndexMismatch, false},
		{ErrCategoryContainer, CodeNotValidated, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryIndex, CodeNotMonotonic, "index goes backwards")
	if GetCategory(err) != ErrCategoryIndex {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryIndex)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-GridframeError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCategoryIndex, CodeTimezoneMissing, "naive timestamp")
	if GetCode(err) != CodeTimezoneMissing {
		t.Errorf("got %q, want %q", GetCode(err), CodeTimezoneMissing)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-GridframeError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryValidation, CodeInvalidSchema, "bad schema")
	detailed := err.WithDetails(map[string]interface{}{"column": "kw"})

	if detailed.Details["column"] != "kw" {
		t.Error("WithDetails should set details")
	}
	// Original should be unmodified
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	v := NewValidationError(CodeNullNotAllowed, "null in non-nullable column")
	if v.Category != ErrCategoryValidation || v.Code != CodeNullNotAllowed {
		t.Error("NewValidationError mismatch")
	}

	ix := NewIndexError(CodeNoEstimateColumn, "schema lacks estimate column")
	if ix.Category != ErrCategoryIndex {
		t.Error("NewIndexError mismatch")
	}

	a := NewAggregationError(CodeIndexMismatch, "inputs not aligned")
	if a.Category != ErrCategoryAggregation {
		t.Error("NewAggregationError mismatch")
	}

	c := NewContainerError(CodeNotValidated, "persist before validate")
	if c.Category != ErrCategoryContainer {
		t.Error("NewContainerError mismatch")
	}

	s := NewStoreError(CodeUploadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStore || !errors.Is(s, cause) {
		t.Error("NewStoreError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
