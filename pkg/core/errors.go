package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: unknown_script, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches on code so wrapped copies compare equal to their prototype
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Request errors
	ErrUnknownScript = &ExecutionError{
		Category: ErrCategoryRequest,
		Code:     "unknown_script",
		Message:  "script is not registered",
	}
	ErrInvalidQuery = &ExecutionError{
		Category: ErrCategoryRequest,
		Code:     "invalid_query",
		Message:  "query text is empty",
	}
	ErrNotFound = &ExecutionError{
		Category: ErrCategoryRequest,
		Code:     "not_found",
		Message:  "no such execution",
	}

	// Detection errors
	ErrEngineUnavailable = &ExecutionError{
		Category: ErrCategoryDetection,
		Code:     "engine_unavailable",
		Message:  "OCR engine is not available",
	}
	ErrRecognitionError = &ExecutionError{
		Category: ErrCategoryDetection,
		Code:     "recognition_error",
		Message:  "OCR recognition failed",
	}

	// Device errors
	ErrDeviceUnreachable = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "device_unreachable",
		Message:  "device did not respond",
	}
	ErrDeviceError = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "device_error",
		Message:  "device rejected the command",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
