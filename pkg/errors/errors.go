// Package errors provides structured error types for onnxgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the translators and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - EXPORT_*: Failures while turning a visual graph back into a model
//   - *_LOCKED, TOPOLOGY_*: Structural graph violations
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTensorShape, "tensor %q: %d values for shape %v", name, n, shape)
//	if errors.Is(err, errors.ErrCodeInvalidTensorShape) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeExportFailed, origErr, "check model %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Value model errors
	ErrCodeInvalidTensorShape Code = "INVALID_TENSOR_SHAPE"
	ErrCodeInvalidDType       Code = "INVALID_DTYPE"
	ErrCodeInvalidAttribute   Code = "INVALID_ATTRIBUTE"

	// Import errors
	ErrCodeMalformedModel Code = "MALFORMED_MODEL"
	ErrCodeTopology       Code = "TOPOLOGY_ERROR"

	// Export errors
	ErrCodeExportShapeMismatch Code = "EXPORT_SHAPE_MISMATCH"
	ErrCodeSchemaValidation    Code = "SCHEMA_VALIDATION"
	ErrCodeExportFailed        Code = "EXPORT_FAILED"

	// Editing errors
	ErrCodePortLocked Code = "PORT_LOCKED"

	// File errors
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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
		if e.Code == code {
			return true
		}
		return Is(e.Cause, code)
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

// NodeError attributes an error to a single operator of a graph. Export
// failures and schema warnings carry the operator name so callers can point
// the user at the offending vertex.
type NodeError struct {
	Node string // Operator (vertex) name
	Op   string // Operator type
	Err  error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("node %q (%s): %v", e.Node, e.Op, e.Err)
	}
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

// Unwrap returns the wrapped error.
func (e *NodeError) Unwrap() error { return e.Err }
