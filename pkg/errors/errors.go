// Package errors provides structured error types for sceneguard.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND / DUPLICATE_ID: Registry lookups
//   - *_FAILURE: Engine operations that fell back or exhausted their strategies
//   - INTERNAL_*: Unexpected internal errors
//
// Registry and removal operations never panic: they return an *Error whose code
// callers inspect with [Is]. A NOT_FOUND on removal means the object is already gone.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateID, "object %q already registered", id)
//	if errors.Is(err, errors.ErrCodeDuplicateID) {
//	    // Pick a new id
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCorrectionFailure, origErr, "fade out %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidScene    Code = "INVALID_SCENE"
	ErrCodeInvalidCategory Code = "INVALID_CATEGORY"
	ErrCodeInvalidBounds   Code = "INVALID_BOUNDS"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Registry errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeDuplicateID Code = "DUPLICATE_ID"

	// Engine errors
	ErrCodePlacementFailure  Code = "PLACEMENT_FAILURE"
	ErrCodeCorrectionFailure Code = "CORRECTION_FAILURE"
	ErrCodeMonitorTick       Code = "MONITOR_TICK"
	ErrCodeRemovalRefused    Code = "REMOVAL_REFUSED"
	ErrCodeAlreadyCorrecting Code = "ALREADY_CORRECTING"

	// Lifecycle errors
	ErrCodeTimeout    Code = "TIMEOUT"
	ErrCodeCancelled  Code = "CANCELLED"
	ErrCodeNotRunning Code = "NOT_RUNNING"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// NotFound is shorthand for a NOT_FOUND error about an object id.
func NotFound(id string) *Error {
	return New(ErrCodeNotFound, "object %q not found", id)
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}
