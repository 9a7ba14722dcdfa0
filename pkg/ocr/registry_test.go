package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// fakeEngine is a configurable in-memory engine for registry tests.
type fakeEngine struct {
	name      string
	available bool
	languages []string
	elements  map[string][]core.TextElement // keyed by language
	err       error
	calls     []string
}

func (f *fakeEngine) Name() string                 { return f.name }
func (f *fakeEngine) Available() bool              { return f.available }
func (f *fakeEngine) SupportedLanguages() []string { return f.languages }

func (f *fakeEngine) Recognize(ctx context.Context, img []byte, language string) ([]core.TextElement, error) {
	f.calls = append(f.calls, language)
	if f.err != nil {
		return nil, f.err
	}
	return f.elements[language], nil
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRegistry_NamesIncludesUnavailable(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "beta", available: false})
	r.Register(&fakeEngine{name: "alpha", available: true})

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names() = %v, want [alpha beta]", names)
	}
}

func TestRegistry_FirstRegisteredIsDefault(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "first", available: true})
	r.Register(&fakeEngine{name: "second", available: true})

	if got := r.Default(); got != "first" {
		t.Errorf("Default() = %q, want %q", got, "first")
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "a", available: true})
	r.Register(&fakeEngine{name: "b", available: true})
	r.Register(&fakeEngine{name: "down", available: false})

	if err := r.SetDefault("b"); err != nil {
		t.Fatalf("SetDefault(b) error: %v", err)
	}
	if got := r.Default(); got != "b" {
		t.Errorf("Default() = %q, want %q", got, "b")
	}

	if err := r.SetDefault("missing"); !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("SetDefault(missing) = %v, want engine_unavailable", err)
	}
	if err := r.SetDefault("down"); !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("SetDefault(down) = %v, want engine_unavailable", err)
	}
}

func TestRegistry_StatusReportsUnavailableEngines(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "up", available: true, languages: []string{"eng"}})
	r.Register(&fakeEngine{name: "down", available: false, languages: []string{"eng"}})

	status, def := r.Status()
	if def != "up" {
		t.Errorf("default = %q, want %q", def, "up")
	}
	if len(status) != 2 {
		t.Fatalf("got %d engines in status, want 2", len(status))
	}
	if status["down"].Available {
		t.Error("down engine should be reported unavailable")
	}
	if !status["up"].Available {
		t.Error("up engine should be reported available")
	}
}

func TestRegistry_RecognizeUnknownEngine(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "a", available: true, languages: []string{"eng"}})

	_, err := r.Recognize(context.Background(), testPNG(t, 10, 10), nil, "nope")
	if !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("err = %v, want engine_unavailable", err)
	}
}

func TestRegistry_RecognizeUnsupportedLanguage(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "a", available: true, languages: []string{"eng"}})

	_, err := r.Recognize(context.Background(), testPNG(t, 10, 10), []string{"kor"}, "")
	if !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("err = %v, want engine_unavailable", err)
	}
}

func TestRegistry_RecognizeEngineFailure(t *testing.T) {
	r := NewRegistry(0)
	r.Register(&fakeEngine{name: "a", available: true, languages: []string{"eng"}, err: fmt.Errorf("boom")})

	_, err := r.Recognize(context.Background(), testPNG(t, 10, 10), []string{"eng"}, "")
	if !errors.Is(err, core.ErrRecognitionError) {
		t.Errorf("err = %v, want recognition_error", err)
	}
}

func TestRegistry_RecognizeMultiLanguageUnion(t *testing.T) {
	engine := &fakeEngine{
		name:      "a",
		available: true,
		languages: []string{"eng", "kor"},
		elements: map[string][]core.TextElement{
			"eng": {
				{Text: "Hello", X: 0, Y: 0, Width: 100, Height: 20, Confidence: 90},
			},
			"kor": {
				// Same box, lower confidence: deduplicated away
				{Text: "Hello?", X: 0, Y: 0, Width: 100, Height: 20, Confidence: 60},
				// Distinct box: kept
				{Text: "안녕", X: 0, Y: 100, Width: 50, Height: 20, Confidence: 80},
			},
		},
	}
	r := NewRegistry(0)
	r.Register(engine)

	result, err := r.Recognize(context.Background(), testPNG(t, 10, 10), []string{"eng", "kor"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(engine.calls) != 2 {
		t.Errorf("engine called %d times, want 2 (once per language)", len(engine.calls))
	}
	if len(result.Elements) != 2 {
		t.Fatalf("got %d elements, want 2: %+v", len(result.Elements), result.Elements)
	}
	if result.Elements[0].Text != "Hello" {
		t.Errorf("higher-confidence duplicate should win, got %q", result.Elements[0].Text)
	}
	if result.EngineUsed != "a" {
		t.Errorf("EngineUsed = %q, want %q", result.EngineUsed, "a")
	}
	if len(result.LanguagesUsed) != 2 {
		t.Errorf("LanguagesUsed = %v, want both languages", result.LanguagesUsed)
	}
}

func TestRegistry_RecognizeEmptyLanguagesDefaultsToAllSupported(t *testing.T) {
	engine := &fakeEngine{
		name:      "a",
		available: true,
		languages: []string{"eng", "chi_sim", "jpn", "kor"},
	}
	r := NewRegistry(0)
	r.Register(engine)

	result, err := r.Recognize(context.Background(), testPNG(t, 10, 10), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"eng", "chi_sim", "jpn", "kor"}
	if len(engine.calls) != len(want) {
		t.Fatalf("engine called with %v, want one pass per supported language %v", engine.calls, want)
	}
	for i, lang := range want {
		if engine.calls[i] != lang {
			t.Errorf("call %d = %q, want %q", i, engine.calls[i], lang)
		}
	}
	if len(result.LanguagesUsed) != len(want) {
		t.Errorf("LanguagesUsed = %v, want %v", result.LanguagesUsed, want)
	}
}

func TestRegistry_RecognizeDuplicateHigherConfidenceReplaces(t *testing.T) {
	engine := &fakeEngine{
		name:      "a",
		available: true,
		languages: []string{"eng", "kor"},
		elements: map[string][]core.TextElement{
			"eng": {{Text: "low", X: 0, Y: 0, Width: 100, Height: 20, Confidence: 40}},
			"kor": {{Text: "high", X: 10, Y: 0, Width: 100, Height: 20, Confidence: 95}},
		},
	}
	r := NewRegistry(0)
	r.Register(engine)

	result, err := r.Recognize(context.Background(), testPNG(t, 10, 10), []string{"eng", "kor"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Elements) != 1 || result.Elements[0].Text != "high" {
		t.Errorf("got %+v, want single element 'high'", result.Elements)
	}
}

func TestRegistry_RecognizeScalesCoordinatesBack(t *testing.T) {
	engine := &fakeEngine{
		name:      "a",
		available: true,
		languages: []string{"eng"},
		elements: map[string][]core.TextElement{
			"eng": {{Text: "x", X: 50, Y: 10, Width: 20, Height: 10, Confidence: 90}},
		},
	}
	// Image is 200 wide, max width 100: engine sees a half-size image and
	// its coordinates must be doubled on the way out.
	r := NewRegistry(100)
	r.Register(engine)

	result, err := r.Recognize(context.Background(), testPNG(t, 200, 100), []string{"eng"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := result.Elements[0]
	if e.X != 100 || e.Y != 20 || e.Width != 40 || e.Height != 20 {
		t.Errorf("scaled element = (%d,%d %dx%d), want (100,20 40x20)", e.X, e.Y, e.Width, e.Height)
	}
}

func TestOverlapRatio(t *testing.T) {
	a := core.TextElement{X: 0, Y: 0, Width: 100, Height: 20}
	tests := []struct {
		name string
		b    core.TextElement
		want float64
	}{
		{"identical", core.TextElement{X: 0, Y: 0, Width: 100, Height: 20}, 1.0},
		{"disjoint", core.TextElement{X: 200, Y: 0, Width: 100, Height: 20}, 0},
		{"half of smaller", core.TextElement{X: 75, Y: 0, Width: 50, Height: 20}, 0.5},
		{"touching edges", core.TextElement{X: 100, Y: 0, Width: 50, Height: 20}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapRatio(a, tt.b); got != tt.want {
				t.Errorf("overlapRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrepare_SmallImagePassthrough(t *testing.T) {
	data := testPNG(t, 50, 50)
	out, scale, err := prepare(data, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale != 1.0 {
		t.Errorf("scale = %v, want 1.0", scale)
	}
	if !bytes.Equal(out, data) {
		t.Error("small image should pass through unmodified")
	}
}

func TestPrepare_WideImageDownscaled(t *testing.T) {
	data := testPNG(t, 400, 200)
	out, scale, err := prepare(data, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale != 4.0 {
		t.Errorf("scale = %v, want 4.0", scale)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode scaled image: %v", err)
	}
	if cfg.Width != 100 {
		t.Errorf("scaled width = %d, want 100", cfg.Width)
	}
}

func TestPrepare_InvalidImage(t *testing.T) {
	_, _, err := prepare([]byte("not an image"), 100)
	if err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestPrepare_DisabledMaxWidth(t *testing.T) {
	data := []byte("opaque bytes are fine when downscaling is off")
	out, scale, err := prepare(data, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale != 1.0 || !bytes.Equal(out, data) {
		t.Error("prepare with maxWidth 0 should be a no-op")
	}
}
