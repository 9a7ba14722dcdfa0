// Package resolver matches a text query against detected screen elements.
package resolver

import (
	"strings"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// Options controls the OCR fallback behavior of Resolve.
type Options struct {
	// OCRFallback enables the OCR pass when the UI pass finds nothing
	OCRFallback bool

	// OCRElements are pre-fetched OCR detections. When nil and FetchOCR is
	// set, elements are fetched lazily, so a UI hit never pays for OCR.
	OCRElements []core.TextElement

	// FetchOCR produces OCR elements on demand. A fetch error is a genuine
	// failure and propagates; it is never reported as not-found.
	FetchOCR func() ([]core.TextElement, error)
}

// Resolve finds the query text on screen. The UI pass runs first and is
// authoritative; OCR is consulted only when the UI has no match and the
// options permit it. A result with Found=false and method "none" is a
// normal outcome, not an error.
func Resolve(query string, uiElements []core.TextElement, opts Options) (*core.MatchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, core.ErrInvalidQuery
	}

	if matched := bestUIMatch(trimmed, uiElements); matched != nil {
		target := matched.Center()
		return &core.MatchResult{
			Found:           true,
			FoundInUI:       true,
			DetectionMethod: core.MethodUI,
			Target:          &target,
			Matched:         matched,
		}, nil
	}

	if opts.OCRFallback {
		elements := opts.OCRElements
		if elements == nil && opts.FetchOCR != nil {
			fetched, err := opts.FetchOCR()
			if err != nil {
				return nil, err
			}
			elements = fetched
		}

		if matched := bestOCRMatch(trimmed, elements); matched != nil {
			target := matched.Center()
			return &core.MatchResult{
				Found:           true,
				FoundInOCR:      true,
				DetectionMethod: core.MethodOCR,
				Target:          &target,
				Matched:         matched,
			}, nil
		}
	}

	return &core.MatchResult{
		Found:           false,
		DetectionMethod: core.MethodNone,
	}, nil
}

// matches reports whether the element text contains the query,
// case-insensitive and whitespace-trimmed on both sides.
func matches(query string, element core.TextElement) bool {
	text := strings.TrimSpace(element.Text)
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

// bestUIMatch prefers the smallest on-screen area, then document order.
// Small elements are the specific controls; large ones are containers
// whose text merely includes the target.
func bestUIMatch(query string, elements []core.TextElement) *core.TextElement {
	var best *core.TextElement
	for i := range elements {
		if !matches(query, elements[i]) {
			continue
		}
		if best == nil || elements[i].Area() < best.Area() {
			best = &elements[i]
		}
	}
	return best
}

// bestOCRMatch prefers the highest confidence. OCR output order carries
// no document meaning, so it is not used as a tie-break.
func bestOCRMatch(query string, elements []core.TextElement) *core.TextElement {
	var best *core.TextElement
	for i := range elements {
		if !matches(query, elements[i]) {
			continue
		}
		if best == nil || elements[i].Confidence > best.Confidence {
			best = &elements[i]
		}
	}
	return best
}
