package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/logger"
)

// Word-level results below this confidence are noise and dropped.
const tesseractMinConfidence = 30.0

var meaningfulSingleChar = regexp.MustCompile(`[0-9a-zA-Z\x{4e00}-\x{9fff}\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{ac00}-\x{d7af}+\-=<>!@#$%&*()]`)

// TesseractEngine runs local OCR through the Tesseract C API.
// The gosseract client is not safe for concurrent use, so calls are
// serialized on a single long-lived client.
type TesseractEngine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	available bool
}

// NewTesseractEngine creates the engine and probes the installation.
// A missing Tesseract installation makes the engine unavailable rather
// than failing construction.
func NewTesseractEngine() *TesseractEngine {
	client := gosseract.NewClient()
	client.SetPageSegMode(gosseract.PSM_AUTO)

	e := &TesseractEngine{client: client}
	if err := client.SetLanguage("eng"); err != nil {
		logger.Warn("tesseract unavailable: %v", err)
		client.Close()
		e.client = nil
		return e
	}
	e.available = true
	return e
}

// Name returns the registry key for the engine
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Available reports whether a usable Tesseract installation was found
func (e *TesseractEngine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// SupportedLanguages returns the language codes the engine accepts
func (e *TesseractEngine) SupportedLanguages() []string {
	return []string{"eng", "chi_sim", "jpn", "kor"}
}

// Recognize extracts word-level text elements for one language.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, language string) ([]core.TextElement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.available {
		return nil, fmt.Errorf("tesseract is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", language, err)
	}
	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("get bounding boxes: %w", err)
	}

	var elements []core.TextElement
	for _, box := range boxes {
		if box.Confidence < tesseractMinConfidence {
			continue
		}

		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		// Single stray characters are almost always misreads
		if len([]rune(text)) == 1 && !meaningfulSingleChar.MatchString(text) {
			continue
		}

		elements = append(elements, core.TextElement{
			Text:       text,
			X:          box.Box.Min.X,
			Y:          box.Box.Min.Y,
			Width:      box.Box.Max.X - box.Box.Min.X,
			Height:     box.Box.Max.Y - box.Box.Min.Y,
			Confidence: box.Confidence,
			Source:     core.SourceOCR,
		})
	}

	return elements, nil
}

// Close releases the Tesseract client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		e.available = false
		return err
	}
	return nil
}
