package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/logger"
)

// PaddleEngine talks to a PaddleOCR serving endpoint over HTTP.
type PaddleEngine struct {
	baseURL    string
	httpClient *http.Client
	available  bool
}

// paddle language codes differ from tesseract's
var paddleLanguages = map[string]string{
	"eng":     "en",
	"chi_sim": "ch",
	"jpn":     "japan",
	"kor":     "korean",
}

// NewPaddleEngine creates the engine and probes the serving endpoint.
// An unreachable endpoint makes the engine unavailable rather than
// failing construction.
func NewPaddleEngine(baseURL string) *PaddleEngine {
	e := &PaddleEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	e.available = e.probe()
	return e
}

// probe checks the serving endpoint is reachable. Any HTTP response
// counts; only connection failures mark the engine unavailable.
func (e *PaddleEngine) probe() bool {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(e.baseURL)
	if err != nil {
		logger.Warn("paddle endpoint %s unreachable: %v", e.baseURL, err)
		return false
	}
	resp.Body.Close()
	return true
}

// Name returns the registry key for the engine
func (e *PaddleEngine) Name() string {
	return "paddle"
}

// Available reports whether the serving endpoint answered the probe
func (e *PaddleEngine) Available() bool {
	return e.available
}

// SupportedLanguages returns the language codes the engine accepts
func (e *PaddleEngine) SupportedLanguages() []string {
	return []string{"eng", "chi_sim", "jpn", "kor"}
}

type paddleRequest struct {
	Images []string `json:"images"`
	Lang   string   `json:"lang,omitempty"`
}

type paddleLine struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	TextRegion [][]float64 `json:"text_region"` // [[x1,y1],[x2,y2],[x3,y3],[x4,y4]]
}

type paddleResponse struct {
	Msg     string         `json:"msg"`
	Status  string         `json:"status"`
	Results [][]paddleLine `json:"results"`
}

// Recognize posts the image to the serving endpoint and converts the
// quadrilateral regions into axis-aligned elements.
func (e *PaddleEngine) Recognize(ctx context.Context, image []byte, language string) ([]core.TextElement, error) {
	payload := paddleRequest{
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Lang:   paddleLanguages[language],
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := e.baseURL + "/predict/ocr_system"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paddle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paddle returned HTTP %d", resp.StatusCode)
	}

	var parsed paddleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode paddle response: %w", err)
	}
	if parsed.Status != "" && parsed.Status != "000" {
		return nil, fmt.Errorf("paddle processing failed: %s", parsed.Msg)
	}

	var elements []core.TextElement
	for _, page := range parsed.Results {
		for _, line := range page {
			elem, ok := lineToElement(line)
			if !ok {
				continue
			}
			elements = append(elements, elem)
		}
	}

	return elements, nil
}

// lineToElement converts a quadrilateral region to an axis-aligned box.
// Paddle reports confidence 0..1; scale to the 0..100 range used everywhere.
func lineToElement(line paddleLine) (core.TextElement, bool) {
	if len(line.TextRegion) < 4 || line.Text == "" {
		return core.TextElement{}, false
	}

	minX, minY := line.TextRegion[0][0], line.TextRegion[0][1]
	maxX, maxY := minX, minY
	for _, point := range line.TextRegion {
		if len(point) < 2 {
			return core.TextElement{}, false
		}
		if point[0] < minX {
			minX = point[0]
		}
		if point[0] > maxX {
			maxX = point[0]
		}
		if point[1] < minY {
			minY = point[1]
		}
		if point[1] > maxY {
			maxY = point[1]
		}
	}

	return core.TextElement{
		Text:       line.Text,
		X:          int(minX),
		Y:          int(minY),
		Width:      int(maxX - minX),
		Height:     int(maxY - minY),
		Confidence: line.Confidence * 100,
		Source:     core.SourceOCR,
	}, true
}
