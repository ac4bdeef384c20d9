package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryRuntime Category = "runtime"
)

// OptimistError is a structured error with a code, explanation and hint.
type OptimistError struct {
	// Code is a unique error identifier (e.g., "C001").
	Code string

	// Category is the error type (config, cli, runtime).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *OptimistError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *OptimistError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *OptimistError) WithSuggestion(s string) *OptimistError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *OptimistError) WithDetail(d string) *OptimistError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted explanation to the error.
func (e *OptimistError) WithDetailf(format string, args ...any) *OptimistError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *OptimistError) Wrap(err error) *OptimistError {
	e.Wrapped = err
	return e
}

// New creates an OptimistError from a registered error code.
func New(code string) *OptimistError {
	template, ok := registry[code]
	if !ok {
		return &OptimistError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &OptimistError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}
