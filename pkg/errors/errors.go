// Package errors provides structured error types for the sink application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the manifest core
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - MALFORMED_*: Manifest content that could not be understood
//   - *_FAILED: I/O or protocol failures wrapping a lower-level cause
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPathspec, "malformed pathspec: %q", raw)
//	if errors.Is(err, errors.ErrCodeInvalidPathspec) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeLoadFailed, origErr, "failed to load %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input parse errors
	ErrCodeInvalidPathspec Code = "INVALID_PATHSPEC"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Manifest validation errors
	ErrCodeMalformedEntries Code = "MALFORMED_ENTRIES"
	ErrCodeInvalidManifest  Code = "INVALID_MANIFEST"

	// Mutation errors
	ErrCodeDuplicateKey        Code = "DUPLICATE_KEY"
	ErrCodeGroupedIntoSingular Code = "GROUPED_INTO_SINGULAR"
	ErrCodeMissingGroup        Code = "MISSING_GROUP"
	ErrCodeCorruptContainer    Code = "CORRUPT_CONTAINER"
	ErrCodeNotFound            Code = "NOT_FOUND"

	// I/O and protocol errors
	ErrCodeLoadFailed     Code = "LOAD_FAILED"
	ErrCodeSaveFailed     Code = "SAVE_FAILED"
	ErrCodeDownloadFailed Code = "DOWNLOAD_FAILED"
	ErrCodeNetwork        Code = "NETWORK_ERROR"

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
