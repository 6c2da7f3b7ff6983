// Package domainerrors defines the coded error type shared by all domain
// services. Services create or wrap errors with a Code; the HTTP layer
// translates codes into status codes and JSON envelopes.
//
// For infrastructure facts (row missing, version stale) stores return
// pkg/platform/sentinel errors instead; services translate those into coded
// errors at the boundary so callers never depend on storage details.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and the transport layer.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. Always detected
	// before any mutation; safe to retry after correcting the input.
	CodeValidation Code = "validation_error"

	// CodeNotFound marks a lookup for an entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a stale-version write or an invalid state
	// transition. Recoverable by re-fetching the entity and retrying.
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks a failed actor identity resolution.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an actor lacking the role an operation requires.
	CodeForbidden Code = "forbidden"

	// CodeInternal marks an unexpected internal failure.
	CodeInternal Code = "internal_error"
)

// Details carries structured, code-specific context: per-field messages for
// validation errors, expected/current versions for conflicts.
type Details map[string]any

// Error is the coded error returned by domain services.
type Error struct {
	Code    Code
	Message string
	Details Details
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two coded errors on code and message, so tests can compare
// against a freshly constructed error value.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New builds a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, keeping the cause
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details Details) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, matching call sites that read
// dErrors.Is(err, dErrors.CodeValidation).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that were never classified.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DetailsOf extracts structured details from err, or nil.
func DetailsOf(err error) Details {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}
