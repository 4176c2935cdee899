package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error is the structured error type used across the release pipeline.
// It carries a stable code, a human-readable message, optional key/value
// context, and the wrapped cause.
type Error struct {
	// Code classifies the error condition.
	Code ErrorCode

	// Message is a human-readable description of the failure.
	Message string

	// Context holds additional structured detail about the failure.
	Context map[string]interface{}

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
// Returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// WrapWithContext wraps an existing error with a code, message, and
// structured context. Returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, context map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Context: context, Cause: err}
}

// Error implements the error interface. Context keys are rendered in a
// stable order so error strings are deterministic.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(pairs, ", "))
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns CodeUnknown if no *Error is found in the chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}
