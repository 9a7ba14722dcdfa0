// Package ocr runs text recognition engines over device screenshots.
package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/logger"
)

// Engine is a single OCR backend.
type Engine interface {
	// Name returns the registry key for the engine
	Name() string

	// Available reports whether the engine can serve requests right now
	Available() bool

	// SupportedLanguages returns the language codes the engine accepts
	SupportedLanguages() []string

	// Recognize extracts text elements for one language. Coordinates are
	// in the pixel space of the supplied image.
	Recognize(ctx context.Context, image []byte, language string) ([]core.TextElement, error)
}

// EngineStatus describes one registered engine for introspection.
type EngineStatus struct {
	Name               string   `json:"name"`
	Available          bool     `json:"available"`
	SupportedLanguages []string `json:"supported_languages"`
}

// Registry holds the configured OCR engines. Engines are registered at
// construction; the set never changes afterwards, only the default may.
type Registry struct {
	mu            sync.RWMutex
	engines       map[string]Engine
	defaultEngine string
	maxImageWidth int
}

// NewRegistry creates an empty registry. maxImageWidth bounds the width of
// images handed to engines; wider screenshots are downscaled first and
// detected coordinates scaled back (0 disables downscaling).
func NewRegistry(maxImageWidth int) *Registry {
	return &Registry{
		engines:       make(map[string]Engine),
		maxImageWidth: maxImageWidth,
	}
}

// Register adds an engine. The first registered engine becomes the default
// until SetDefault picks another one.
func (r *Registry) Register(engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	r.engines[name] = engine
	if r.defaultEngine == "" {
		r.defaultEngine = name
	}
	logger.Info("OCR engine registered: %s (available=%v)", name, engine.Available())
}

// Names returns all registered engine names, available or not.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the current default engine name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultEngine
}

// SetDefault switches the default engine. Unknown or unavailable engines
// are rejected.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	engine, ok := r.engines[name]
	if !ok {
		return core.ErrEngineUnavailable.WithMessage(fmt.Sprintf("unknown OCR engine %q", name))
	}
	if !engine.Available() {
		return core.ErrEngineUnavailable.WithMessage(fmt.Sprintf("OCR engine %q is not available", name))
	}

	r.defaultEngine = name
	logger.Info("default OCR engine set to %s", name)
	return nil
}

// Status reports every registered engine and the current default. It never
// fails; unavailable engines are reported, not omitted.
func (r *Registry) Status() (map[string]EngineStatus, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]EngineStatus, len(r.engines))
	for name, engine := range r.engines {
		status[name] = EngineStatus{
			Name:               name,
			Available:          engine.Available(),
			SupportedLanguages: engine.SupportedLanguages(),
		}
	}
	return status, r.defaultEngine
}

// Recognize runs OCR over the image. An empty engineName selects the
// default engine; empty languages default to everything the engine
// supports. Multi-language requests run once per language and the union
// is deduplicated, keeping the higher-confidence element when boxes
// overlap by half or more.
func (r *Registry) Recognize(ctx context.Context, image []byte, languages []string, engineName string) (*core.DetectionResult, error) {
	engine, err := r.lookup(engineName)
	if err != nil {
		return nil, err
	}

	if len(languages) == 0 {
		languages = append([]string(nil), engine.SupportedLanguages()...)
	}
	if err := checkLanguages(engine, languages); err != nil {
		return nil, err
	}

	prepared, scale, err := prepare(image, r.maxImageWidth)
	if err != nil {
		return nil, core.ErrRecognitionError.WithMessage("could not decode image").WithCause(err)
	}

	var union []core.TextElement
	for _, lang := range languages {
		elements, err := engine.Recognize(ctx, prepared, lang)
		if err != nil {
			return nil, core.ErrRecognitionError.
				WithDetails(map[string]interface{}{"engine": engine.Name(), "language": lang}).
				WithCause(err)
		}
		union = dedupOverlapping(union, elements)
	}

	if scale != 1.0 {
		for i := range union {
			union[i].X = int(float64(union[i].X) * scale)
			union[i].Y = int(float64(union[i].Y) * scale)
			union[i].Width = int(float64(union[i].Width) * scale)
			union[i].Height = int(float64(union[i].Height) * scale)
		}
	}

	logger.Debug("OCR %s found %d elements (languages=%s)", engine.Name(), len(union), strings.Join(languages, "+"))

	return &core.DetectionResult{
		Elements:      union,
		Source:        core.SourceOCR,
		EngineUsed:    engine.Name(),
		LanguagesUsed: languages,
	}, nil
}

func (r *Registry) lookup(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultEngine
	}
	engine, ok := r.engines[name]
	if !ok {
		return nil, core.ErrEngineUnavailable.WithMessage(fmt.Sprintf("unknown OCR engine %q", name))
	}
	if !engine.Available() {
		return nil, core.ErrEngineUnavailable.WithMessage(fmt.Sprintf("OCR engine %q is not available", name))
	}
	return engine, nil
}

func checkLanguages(engine Engine, languages []string) error {
	supported := make(map[string]bool)
	for _, lang := range engine.SupportedLanguages() {
		supported[lang] = true
	}
	for _, lang := range languages {
		if !supported[lang] {
			return core.ErrEngineUnavailable.
				WithMessage(fmt.Sprintf("engine %q does not support language %q", engine.Name(), lang))
		}
	}
	return nil
}

// dedupOverlapping merges new elements into the union, dropping whichever
// of an overlapping pair has the lower confidence.
func dedupOverlapping(union, incoming []core.TextElement) []core.TextElement {
	for _, candidate := range incoming {
		replaced := false
		duplicate := false
		for i, existing := range union {
			if overlapRatio(existing, candidate) < 0.5 {
				continue
			}
			if candidate.Confidence > existing.Confidence {
				union[i] = candidate
				replaced = true
			}
			duplicate = true
			break
		}
		if !duplicate && !replaced {
			union = append(union, candidate)
		}
	}
	return union
}

// overlapRatio returns the intersection area relative to the smaller box.
func overlapRatio(a, b core.TextElement) float64 {
	ix := max(a.X, b.X)
	iy := max(a.Y, b.Y)
	ix2 := min(a.X+a.Width, b.X+b.Width)
	iy2 := min(a.Y+a.Height, b.Y+b.Height)

	if ix2 <= ix || iy2 <= iy {
		return 0
	}

	intersection := (ix2 - ix) * (iy2 - iy)
	smaller := min(a.Area(), b.Area())
	if smaller == 0 {
		return 0
	}
	return float64(intersection) / float64(smaller)
}
