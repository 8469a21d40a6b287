// Package errors provides structured error types for sparsetree.
//
// Every failure raised while growing, placing into, or finalizing a layout
// tree is a precondition violation. This package gives those failures a
// machine-readable [Code] so that callers (the CLI, manifest loader, or a
// downstream structural compiler) can tell them apart without matching on
// message text.
//
// # Error Codes
//
// Codes are grouped by the stage that detects them:
//   - INVALID_*: malformed builder arguments (sizes, axes, node types)
//   - placement codes: double placement, offsets, exponent sessions
//   - layout codes: bit-width overflow, inconsistent trailing bits
//   - tooling codes: manifests, output formats, lookups
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSize, "axis %d: size %d must be positive", axis, size)
//	if errors.Is(err, errors.ErrCodeInvalidSize) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidManifest, origErr, "decode %s", path)
//
// No operation rolls back on failure: once an error is returned the tree may
// be left partially built and the surrounding build is expected to abort.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Builder argument errors
	ErrCodeInvalidNodeType  Code = "INVALID_NODE_TYPE"
	ErrCodeInvalidSize      Code = "INVALID_SIZE"
	ErrCodeInvalidAxis      Code = "INVALID_AXIS"
	ErrCodeBitWidthOverflow Code = "BIT_WIDTH_OVERFLOW"
	ErrCodeHashNotAtRoot    Code = "HASH_NOT_AT_ROOT"
	ErrCodeDuplicateNode    Code = "DUPLICATE_NODE"

	// Placement errors
	ErrCodeAlreadyPlaced        Code = "ALREADY_PLACED"
	ErrCodeOffsetsAlreadySet    Code = "OFFSETS_ALREADY_SET"
	ErrCodeNotALeaf             Code = "NOT_A_LEAF"
	ErrCodeExponentTypeMismatch Code = "EXPONENT_TYPE_MISMATCH"
	ErrCodeSessionState         Code = "SESSION_STATE"
	ErrCodeNoGradient           Code = "NO_GRADIENT"

	// Finalization errors
	ErrCodeNotFinalized       Code = "NOT_FINALIZED"
	ErrCodeInconsistentLayout Code = "INCONSISTENT_LAYOUT"
	ErrCodeBitLevelOverflow   Code = "BIT_LEVEL_OVERFLOW"

	// Tooling errors
	ErrCodeInvalidType     Code = "INVALID_TYPE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeNotFound        Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// Only the outermost *Error is inspected.
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
