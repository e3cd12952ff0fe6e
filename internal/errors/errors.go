package errors

import (
	"errors"
	"fmt"
)

// ArtmanError is the structured error type for artman.
// It provides rich context for error handling, logging, and user presentation.
type ArtmanError struct {
	// Code is the unique error code (e.g., "ERR_601_UNRESOLVED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Resolution, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string

	// Candidates lists near matches offered for diagnostics.
	Candidates []string
}

// Error implements the error interface.
func (e *ArtmanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ArtmanError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with ArtmanError.
func (e *ArtmanError) Is(target error) bool {
	if t, ok := target.(*ArtmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *ArtmanError) WithDetail(key, value string) *ArtmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ArtmanError) WithSuggestion(suggestion string) *ArtmanError {
	e.Suggestion = suggestion
	return e
}

// WithCandidates attaches near matches to the error.
func (e *ArtmanError) WithCandidates(candidates []string) *ArtmanError {
	e.Candidates = candidates
	return e
}

// New creates a new ArtmanError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *ArtmanError {
	return &ArtmanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new ArtmanError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *ArtmanError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an ArtmanError from an existing error.
// The error's message becomes the ArtmanError message.
func Wrap(code string, err error) *ArtmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *ArtmanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *ArtmanError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *ArtmanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ArtmanError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first ArtmanError in err's chain.
func As(err error) (*ArtmanError, bool) {
	var ae *ArtmanError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an ArtmanError.
// Returns empty string if not an ArtmanError.
func GetCode(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an ArtmanError.
// Returns empty string if not an ArtmanError.
func GetCategory(err error) Category {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return ""
}

// Kind is the coarse taxonomy callers branch on.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindResolution    Kind = "resolution"
	KindIO            Kind = "io"
	KindOther         Kind = "other"
)

// KindOf maps an error onto the configuration / resolution / I/O taxonomy.
// Validation errors count as configuration problems since they point at bad input.
func KindOf(err error) Kind {
	switch GetCategory(err) {
	case CategoryConfig, CategoryValidation:
		return KindConfiguration
	case CategoryResolution:
		return KindResolution
	case CategoryIO, CategoryNetwork:
		return KindIO
	default:
		return KindOther
	}
}
