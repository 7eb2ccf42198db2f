package nbtlai

import (
	"fmt"
	"strings"
)

// ProviderError reports a single failed backend call.
type ProviderError struct {
	Backend   string
	Message   string
	Cause     error
	Retryable bool // transient connectivity or rate-limit condition
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Backend != "" {
		prefix = fmt.Sprintf("provider error (%s)", e.Backend)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// BackendError is returned when a backend request could not be completed,
// either because retries were exhausted or because the failure was permanent.
type BackendError struct {
	Backend   string
	CellIndex int
	SpanIndex int // first translatable span of the failed request
	Attempts  int
	Cause     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed on cell %d span %d after %d attempt(s): %v",
		e.Backend, e.CellIndex, e.SpanIndex, e.Attempts, e.Cause)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// UnsupportedLanguageError is a configuration failure: the selected backend
// has no code for the requested language.
type UnsupportedLanguageError struct {
	Backend   string
	Code      string
	Supported []string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("language %q is not supported by %s; supported codes: %s",
		e.Code, e.Backend, strings.Join(e.Supported, ", "))
}

// CellError wraps a failure that happened while translating one cell.
type CellError struct {
	CellIndex int
	Cause     error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %d: %v", e.CellIndex, e.Cause)
}

func (e *CellError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the backend returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
