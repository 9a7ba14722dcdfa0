package core

import (
	"encoding/json"
	"fmt"
)

// ExecStatus represents the lifecycle state of an execution record
type ExecStatus int

const (
	StatusPending   ExecStatus = iota // Accepted, not yet dispatched
	StatusRunning                     // Handler goroutine is executing
	StatusCompleted                   // Finished successfully
	StatusFailed                      // Finished with an error
)

// String returns the string representation of ExecStatus
func (s ExecStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s ExecStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MarshalJSON serializes the status as its string form
func (s ExecStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the string form of the status
func (s *ExecStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "pending":
		*s = StatusPending
	case "running":
		*s = StatusRunning
	case "completed":
		*s = StatusCompleted
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown execution status %q", str)
	}
	return nil
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryRequest                         // Caller mistakes: unknown script, invalid query
	ErrCategoryDetection                       // OCR engine unavailable or recognition failed
	ErrCategoryDevice                          // Device unreachable or rejected a command
	ErrCategoryTimeout                         // Operation exceeded its deadline
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryRequest:
		return "request"
	case ErrCategoryDetection:
		return "detection"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
