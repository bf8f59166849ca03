// Package errors provides structured error types for the Gridframe system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation  ErrorCategory = "VALIDATION"
	ErrCategoryIndex       ErrorCategory = "INDEX"
	ErrCategoryAggregation ErrorCategory = "AGGREGATION"
	ErrCategoryContainer   ErrorCategory = "CONTAINER"
	ErrCategoryStore       ErrorCategory = "STORE"
	ErrCategoryInternal    ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeColumnMismatch = "COLUMN_MISMATCH"
	CodeTypeMismatch   = "TYPE_MISMATCH"
	CodeNullNotAllowed = "NULL_NOT_ALLOWED"
	CodeInvalidSchema  = "INVALID_SCHEMA"

	// Index codes
	CodeNotMonotonic     = "NOT_MONOTONIC"
	CodeTimezoneMissing  = "TIMEZONE_MISSING"
	CodeGapDetected      = "GAP_DETECTED"
	CodeIndexMissing     = "INDEX_MISSING"
	CodeNoEstimateColumn = "NO_ESTIMATE_COLUMN"

	// Aggregation codes
	CodeIndexMismatch              = "INDEX_MISMATCH"
	CodeAggregationInvariantBroken = "AGGREGATION_INVARIANT_BROKEN"

	// Container codes
	CodeNotValidated   = "NOT_VALIDATED"
	CodeEmptyContainer = "EMPTY_CONTAINER"

	// Store codes
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeFrameNotFound    = "FRAME_NOT_FOUND"
	CodeEncodeFailed     = "ENCODE_FAILED"
	CodeDecodeFailed     = "DECODE_FAILED"
	CodeUploadFailed     = "UPLOAD_FAILED"
	CodeDownloadFailed   = "DOWNLOAD_FAILED"
	CodeDeleteFailed     = "DELETE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// GridframeError is the structured error type used throughout the system.
type GridframeError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *GridframeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *GridframeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *GridframeError) Is(target error) bool {
	var t *GridframeError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new GridframeError.
func New(category ErrorCategory, code, message string) *GridframeError {
	return &GridframeError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new GridframeError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *GridframeError {
	return &GridframeError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *GridframeError) WithDetails(details map[string]interface{}) *GridframeError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ge *GridframeError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a GridframeError.
func GetCategory(err error) ErrorCategory {
	var ge *GridframeError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a GridframeError.
func GetCode(err error) string {
	var ge *GridframeError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only the storage
// boundary crossings are; core errors are corrected by the caller, never
// retried inside the library.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStore && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStore && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryStore && code == CodeDeleteFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *GridframeError {
	return New(ErrCategoryValidation, code, message)
}

func NewIndexError(code, message string) *GridframeError {
	return New(ErrCategoryIndex, code, message)
}

func NewAggregationError(code, message string) *GridframeError {
	return New(ErrCategoryAggregation, code, message)
}

func NewContainerError(code, message string) *GridframeError {
	return New(ErrCategoryContainer, code, message)
}

func NewStoreError(code, message string, cause error) *GridframeError {
	return Wrap(ErrCategoryStore, code, message, cause)
}

func NewInternalError(message string, cause error) *GridframeError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
