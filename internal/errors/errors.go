// Package errors provides structured error types for the Quarry system.
// All errors include a category, code, message, and retryable flag so
// callers branch on classification rather than on message substrings.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by failure mode.
type ErrorCategory string

const (
	// ErrCategoryValidation covers pre-execution statement rejection:
	// empty query, forbidden keyword, multiple statements, non-SELECT root.
	// Never retryable.
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	// ErrCategoryExecution covers engine-level query failures mapped to
	// user-safe messages.
	ErrCategoryExecution ErrorCategory = "EXECUTION"
	// ErrCategoryTimeout covers lock/busy timeouts; always retryable.
	ErrCategoryTimeout ErrorCategory = "TIMEOUT"
	// ErrCategoryIngestion covers per-file upload processing failures.
	ErrCategoryIngestion ErrorCategory = "INGESTION"
	// ErrCategoryCatalog covers metadata lookups against the live store.
	ErrCategoryCatalog ErrorCategory = "CATALOG"
	// ErrCategoryStorage covers object-storage archival operations.
	ErrCategoryStorage ErrorCategory = "STORAGE"
	// ErrCategoryInternal covers unexpected failures.
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeEmptyQuery         = "EMPTY_QUERY"
	CodeForbiddenKeyword   = "FORBIDDEN_KEYWORD"
	CodeMultipleStatements = "MULTIPLE_STATEMENTS"
	CodeNotSelect          = "NOT_SELECT"

	// Execution codes
	CodeTableNotFound   = "TABLE_NOT_FOUND"
	CodeColumnNotFound  = "COLUMN_NOT_FOUND"
	CodeSyntaxError     = "SYNTAX_ERROR"
	CodeExecutionFailed = "EXECUTION_FAILED"

	// Timeout codes
	CodeLockTimeout = "LOCK_TIMEOUT"

	// Ingestion codes
	CodeUnsupportedFile = "UNSUPPORTED_FILE"
	CodeBadArchive      = "BAD_ARCHIVE"
	CodeNoTabularFiles  = "NO_TABULAR_FILES"
	CodeEmptyHeader     = "EMPTY_HEADER"
	CodeMaterializeFail = "MATERIALIZE_FAILED"

	// Catalog codes
	CodeUnknownTable = "UNKNOWN_TABLE"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// QuarryError is the structured error type used throughout the system.
type QuarryError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *QuarryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *QuarryError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *QuarryError) Is(target error) bool {
	var t *QuarryError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new QuarryError.
func New(category ErrorCategory, code, message string) *QuarryError {
	return &QuarryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new QuarryError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *QuarryError {
	return &QuarryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a QuarryError.
func GetCategory(err error) ErrorCategory {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a QuarryError.
func GetCode(err error) string {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// UserMessage extracts the user-safe message from an error chain. For a
// QuarryError this is Message alone, never the wrapped cause, so internal
// diagnostics are not leaked to callers. Other errors fall back to a
// generic message.
func UserMessage(err error) string {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Message
	}
	return "internal error"
}

// isRetryable determines if an error code is retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryTimeout:
		return true
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *QuarryError {
	return New(ErrCategoryValidation, code, message)
}

func NewExecutionError(code, message string, cause error) *QuarryError {
	return Wrap(ErrCategoryExecution, code, message, cause)
}

func NewTimeoutError(message string, cause error) *QuarryError {
	return Wrap(ErrCategoryTimeout, CodeLockTimeout, message, cause)
}

func NewIngestionError(code, message string, cause error) *QuarryError {
	return Wrap(ErrCategoryIngestion, code, message, cause)
}

func NewCatalogError(code, message string) *QuarryError {
	return New(ErrCategoryCatalog, code, message)
}

func NewStorageError(code, message string, cause error) *QuarryError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *QuarryError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
