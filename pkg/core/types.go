package core

import (
	"time"
)

// ElementSource identifies where a text element was detected
type ElementSource string

// ElementSource values
const (
	SourceUI  ElementSource = "ui"  // Accessibility/UI hierarchy
	SourceOCR ElementSource = "ocr" // Optical character recognition
)

// TextElement represents a piece of text located on the device screen.
// X,Y is the top-left corner in device pixels when Width/Height are set;
// engines that only report a point leave Width/Height at zero.
type TextElement struct {
	Text       string        `json:"text"`
	X          int           `json:"x"`
	Y          int           `json:"y"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	Confidence float64       `json:"confidence"` // 0-100; UI elements are always 100
	Source     ElementSource `json:"source"`
}

// Center returns the tap point for the element. When the element has no
// size, X,Y already is the point.
func (e TextElement) Center() Point {
	return Point{X: e.X + e.Width/2, Y: e.Y + e.Height/2}
}

// Area returns the on-screen area covered by the element
func (e TextElement) Area() int {
	return e.Width * e.Height
}

// Point represents screen coordinates in device pixels
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DetectionResult is the immutable outcome of one detection pass
type DetectionResult struct {
	Elements      []TextElement `json:"elements"`
	Source        ElementSource `json:"source"`
	EngineUsed    string        `json:"engine_used,omitempty"`    // OCR only
	LanguagesUsed []string      `json:"languages_used,omitempty"` // OCR only
}

// DetectionMethod values reported in a MatchResult
const (
	MethodUI   = "ui"
	MethodOCR  = "ocr"
	MethodNone = "none"
)

// MatchResult describes the outcome of resolving a text query against
// the screen. Found=false with method "none" is a normal result.
type MatchResult struct {
	Found           bool         `json:"found"`
	FoundInUI       bool         `json:"found_in_ui"`
	FoundInOCR      bool         `json:"found_in_ocr"`
	DetectionMethod string       `json:"detection_method"`
	Target          *Point       `json:"target,omitempty"`
	Matched         *TextElement `json:"matched,omitempty"`
}

// ExecutionRecord is the engine's view of one submitted script run.
// Callers only ever see snapshots; the engine owns the live record.
type ExecutionRecord struct {
	ExecutionID string                 `json:"execution_id"`
	DeviceID    string                 `json:"device_id,omitempty"`
	ScriptName  string                 `json:"script_name"`
	Variables   map[string]interface{} `json:"variables,omitempty"`
	Status      ExecStatus             `json:"status"`
	Result      map[string]interface{} `json:"result,omitempty"` // Set only in terminal states
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}
