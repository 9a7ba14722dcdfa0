// Package scripts holds the script registry and the built-in script
// handlers that drive a device.
package scripts

import (
	"context"
	"fmt"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/device"
	"github.com/screengrid-dev/screengrid/pkg/ocr"
)

// Context carries everything a script handler needs for one execution.
type Context struct {
	Ctx         context.Context
	DeviceID    string
	ExecutionID string
	Variables   map[string]interface{}
	StartTime   time.Time

	Device device.Client
	OCR    *ocr.Registry
}

// NewContext creates a script context. Nil variables become an empty map.
func NewContext(ctx context.Context, deviceID, executionID string, variables map[string]interface{}, client device.Client, registry *ocr.Registry) *Context {
	if variables == nil {
		variables = make(map[string]interface{})
	}
	return &Context{
		Ctx:         ctx,
		DeviceID:    deviceID,
		ExecutionID: executionID,
		Variables:   variables,
		StartTime:   time.Now(),
		Device:      client,
		OCR:         registry,
	}
}

// GetString returns a string variable or the default.
func (c *Context) GetString(key, defaultValue string) string {
	if value, exists := c.Variables[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetInt returns an integer variable or the default. JSON numbers arrive
// as float64 and numeric strings are accepted too.
func (c *Context) GetInt(key string, defaultValue int) int {
	if value, exists := c.Variables[key]; exists {
		switch v := value.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			var parsed int
			if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
				return parsed
			}
		}
	}
	return defaultValue
}

// GetBool returns a boolean variable or the default. The strings "true"
// and "false" are accepted.
func (c *Context) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.Variables[key]; exists {
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if v == "true" {
				return true
			}
			if v == "false" {
				return false
			}
		}
	}
	return defaultValue
}

// Result is the outcome of one script handler.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// NewSuccessResult creates a success result.
func NewSuccessResult(message string, data map[string]interface{}) *Result {
	return &Result{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResult creates a failure result.
func NewErrorResult(message string, err error) *Result {
	result := &Result{
		Success: false,
		Message: message,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// ToMap flattens the result into the record's result map.
func (r *Result) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"success": r.Success,
		"message": r.Message,
	}
	for k, v := range r.Data {
		m[k] = v
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

// matchData flattens a MatchResult into result data shared by the text
// detection scripts.
func matchData(match *core.MatchResult) map[string]interface{} {
	data := map[string]interface{}{
		"found":            match.Found,
		"found_in_ui":      match.FoundInUI,
		"found_in_ocr":     match.FoundInOCR,
		"detection_method": match.DetectionMethod,
	}
	if match.Target != nil {
		data["x"] = match.Target.X
		data["y"] = match.Target.Y
	}
	if match.Matched != nil {
		data["matched_text"] = match.Matched.Text
		data["confidence"] = match.Matched.Confidence
	}
	return data
}
