// Package exception provides the execution-level error type for the Undertow
// ingestion engine. Execution-level errors are unrecoverable within a run: they
// abort the perceive/act/reflect loop immediately and mark the run as failed.
// They are distinct from record-level errors, which are collected as data during
// a worker's act phase and never raised.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Execution-level error codes. These identify why an entire run was aborted,
// as opposed to record-level error codes which describe individual row failures.
const (
	CodeExecutionError = "EXECUTION_ERROR"
	CodePARLoopFailed  = "PAR_LOOP_FAILED"
	CodeWorkerNotFound = "WORKER_NOT_FOUND"
	CodeJobNotFound    = "JOB_NOT_FOUND"
)

// EngineError is the error type raised for unrecoverable failures during a run.
// It holds the module where the error occurred, a machine-readable code, a
// message, and the wrapped original error.
type EngineError struct {
	// Module indicates the module where the error occurred (e.g., "par_engine", "loader", "repository").
	Module string
	// Code is the execution-level error code (e.g., EXECUTION_ERROR).
	Code string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewEngineError creates a new EngineError instance.
// module: The module where the error occurred.
// code: The execution-level error code.
// message: The error message.
// originalErr: The original error to wrap, or nil.
func NewEngineError(module, code, message string, originalErr error) *EngineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &EngineError{
		Module:      module,
		Code:        code,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewEngineErrorf creates a new EngineError with a formatted message.
func NewEngineErrorf(module, code, format string, a ...interface{}) *EngineError {
	return NewEngineError(module, code, fmt.Sprintf(format, a...), nil)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Code, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *EngineError) Unwrap() error {
	return e.OriginalErr
}

// IsEngineError determines if the given error is of type EngineError.
func IsEngineError(err error) bool {
	if err == nil {
		return false
	}
	var ee *EngineError
	return errors.As(err, &ee)
}

// CodeOf returns the execution-level code of an error, or EXECUTION_ERROR when
// the error carries no code of its own.
func CodeOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeExecutionError
}

// ExtractErrorMessage extracts the error message string from an error.
// For EngineError, it returns the cleaner Message field.
// Otherwise, it returns the standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Message
	}
	return err.Error()
}
