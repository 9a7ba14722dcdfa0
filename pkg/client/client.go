// Package client is a thin HTTP client for the screengrid API, used by
// the run command and by external callers that drive executions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// DefaultPollInterval is the pause between status polls.
const DefaultPollInterval = 500 * time.Millisecond

// Client talks to a screengrid server.
type Client struct {
	http         *http.Client
	baseURL      string
	pollInterval time.Duration
}

// New creates a client for the given base URL, e.g. "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      baseURL,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval overrides the status poll interval, mainly for tests.
func (c *Client) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		c.pollInterval = interval
	}
}

type submitResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"execution_id"`
	Code        string `json:"code"`
	Error       string `json:"error"`
}

// Submit starts an execution and returns its ID.
func (c *Client) Submit(ctx context.Context, deviceID, scriptName string, variables map[string]interface{}) (string, error) {
	body := map[string]interface{}{
		"device_id":   deviceID,
		"script_name": scriptName,
		"variables":   variables,
	}

	data, err := c.request(ctx, http.MethodPost, "/api/v1/execute", body)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("submit rejected: %s", resp.Error)
	}
	return resp.ExecutionID, nil
}

// Status fetches the current record of one execution.
func (c *Client) Status(ctx context.Context, executionID string) (*core.ExecutionRecord, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/v1/execution/"+executionID, nil)
	if err != nil {
		return nil, err
	}

	var rec core.ExecutionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode execution record: %w", err)
	}
	return &rec, nil
}

// WaitForCompletion polls until the execution reaches a terminal state or
// the context expires. It returns the terminal record.
func (c *Client) WaitForCompletion(ctx context.Context, executionID string) (*core.ExecutionRecord, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		rec, err := c.Status(ctx, executionID)
		if err != nil {
			return nil, err
		}
		if rec.Status.IsTerminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("waiting for execution %s: %w", executionID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// EngineStatus mirrors the server's per-engine OCR status report.
type EngineStatus struct {
	Name               string   `json:"name"`
	Available          bool     `json:"available"`
	SupportedLanguages []string `json:"supported_languages"`
}

type engineStatusResponse struct {
	Status        map[string]EngineStatus `json:"status"`
	DefaultEngine string                  `json:"default_engine"`
}

// OCREngineStatus fetches the OCR engine report and the default engine.
func (c *Client) OCREngineStatus(ctx context.Context) (map[string]EngineStatus, string, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/v1/ocr/engines/status", nil)
	if err != nil {
		return nil, "", err
	}

	var resp engineStatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, "", fmt.Errorf("decode engine status: %w", err)
	}
	return resp.Status, resp.DefaultEngine, nil
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodGet, "/health", nil)
	return err
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// request performs one HTTP round trip and returns the response body.
// Non-2xx answers are turned into errors carrying the server's code.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, apiErr.Code)
		}
		return nil, fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	return respBody, nil
}
