package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/device"
	"github.com/screengrid-dev/screengrid/pkg/device/mock"
	"github.com/screengrid-dev/screengrid/pkg/engine"
	"github.com/screengrid-dev/screengrid/pkg/ocr"
	"github.com/screengrid-dev/screengrid/pkg/scripts"
)

type stubOCREngine struct {
	elements []core.TextElement
}

func (s *stubOCREngine) Name() string                 { return "stub" }
func (s *stubOCREngine) Available() bool              { return true }
func (s *stubOCREngine) SupportedLanguages() []string { return []string{"eng"} }

func (s *stubOCREngine) Recognize(ctx context.Context, img []byte, language string) ([]core.TextElement, error) {
	return s.elements, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	ocrRegistry := ocr.NewRegistry(0)
	ocrRegistry.Register(&stubOCREngine{elements: []core.TextElement{
		{Text: "Login", X: 100, Y: 200, Width: 80, Height: 40, Confidence: 92, Source: core.SourceOCR},
	}})

	scriptRegistry := scripts.NewRegistry(nil)
	client := mock.New(mock.Config{})
	e := engine.New(engine.Config{RecordCapacity: 16, DefaultTimeout: 5 * time.Second},
		scriptRegistry, ocrRegistry,
		func(deviceID string) (device.Client, error) { return client, nil })

	return NewServer(e, scriptRegistry, ocrRegistry)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var parsed map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, parsed
}

func TestExecute_Success(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"device_id":   "dev-1",
		"script_name": "screenshot",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}

	id, _ := resp["execution_id"].(string)
	if id == "" {
		t.Fatal("missing execution_id")
	}

	// Poll the status endpoint until the record is terminal
	deadline := time.Now().Add(3 * time.Second)
	for {
		w, status := doJSON(t, s, http.MethodGet, "/api/v1/execution/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status endpoint returned %d", w.Code)
		}
		if st, _ := status["status"].(string); st == "completed" {
			if status["result"] == nil {
				t.Error("terminal record should carry a result")
			}
			break
		} else if st == "failed" {
			t.Fatalf("execution failed: %+v", status)
		}
		if time.Now().After(deadline) {
			t.Fatal("execution never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExecute_UnknownScript(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"device_id":   "dev-1",
		"script_name": "nope",
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if resp["code"] != "unknown_script" {
		t.Errorf("code = %v, want unknown_script", resp["code"])
	}
}

func TestExecute_MissingFields(t *testing.T) {
	s := newTestServer(t)

	w, _ := doJSON(t, s, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"script_name": "screenshot",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing device_id", w.Code)
	}
}

func TestExecute_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExecutionStatus_Unknown(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodGet, "/api/v1/execution/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if resp["code"] != "not_found" {
		t.Errorf("code = %v, want not_found", resp["code"])
	}
}

func TestExecutionList(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"device_id":   "dev-1",
		"script_name": "screenshot",
	})

	w, resp := doJSON(t, s, http.MethodGet, "/api/v1/executions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if total, _ := resp["total"].(float64); total != 1 {
		t.Errorf("total = %v, want 1", resp["total"])
	}
}

func TestScriptList(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodGet, "/api/v1/scripts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if total, _ := resp["total"].(float64); total < 10 {
		t.Errorf("total = %v, want all builtins listed", resp["total"])
	}
}

func TestOCRProcess(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodPost, "/api/v1/ocr/process", map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("png bytes")),
		"languages":    "eng",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true || resp["engine_used"] != "stub" {
		t.Errorf("unexpected response: %+v", resp)
	}
	// languages_used is a +-joined string on the wire, never an array
	if resp["languages_used"] != "eng" {
		t.Errorf("languages_used = %v (%T), want \"eng\"",
			resp["languages_used"], resp["languages_used"])
	}

	positions, _ := resp["text_positions"].([]interface{})
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	pos := positions[0].(map[string]interface{})
	// 100,200 80x40 box: center is (140,220)
	if pos["x"] != float64(140) || pos["y"] != float64(220) {
		t.Errorf("position = %+v, want center (140,220)", pos)
	}
}

func TestOCRProcess_InvalidBase64(t *testing.T) {
	s := newTestServer(t)

	w, _ := doJSON(t, s, http.MethodPost, "/api/v1/ocr/process", map[string]interface{}{
		"image_base64": "!!not base64!!",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestOCRProcess_UnknownEngine(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodPost, "/api/v1/ocr/process/bogus", map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("png")),
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if resp["code"] != "engine_unavailable" {
		t.Errorf("code = %v, want engine_unavailable", resp["code"])
	}
}

func TestOCREngines(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodGet, "/api/v1/ocr/engines", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if total, _ := resp["total"].(float64); total != 1 {
		t.Errorf("total = %v, want 1", resp["total"])
	}
}

func TestOCREngineStatus(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodGet, "/api/v1/ocr/engines/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["default_engine"] != "stub" {
		t.Errorf("default_engine = %v, want stub", resp["default_engine"])
	}
}

func TestOCRSetDefault(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodPost, "/api/v1/ocr/engines/default", map[string]interface{}{
		"engine": "stub",
	})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Errorf("status = %d, resp = %+v", w.Code, resp)
	}

	w, _ = doJSON(t, s, http.MethodPost, "/api/v1/ocr/engines/default", map[string]interface{}{
		"engine": "bogus",
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, resp := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("status = %d, resp = %+v", w.Code, resp)
	}
}
