// Package mock provides an in-memory device client for testing without a
// broker or a real device.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// Client is a mock implementation of device.Client for testing.
type Client struct {
	// Configuration
	Config Config

	mu    sync.Mutex
	calls []Call
}

// Config configures mock client behavior.
type Config struct {
	// UIElements returned by UIText
	UIElements []core.TextElement
	// ScreenshotPNG returned by Screenshot; defaults to a 1x1 PNG
	ScreenshotPNG []byte
	// ShellOutput returned by RunShell
	ShellOutput string
	// Err makes every operation fail with this error
	Err error
	// OpDelay adds artificial delay per operation
	OpDelay time.Duration
}

// Call records one operation performed on the mock.
type Call struct {
	Op   string // screenshot, ui_text, tap, type_text, run_shell
	X, Y int
	Text string
}

// New creates a new mock client.
func New(cfg Config) *Client {
	if cfg.ScreenshotPNG == nil {
		// Minimal valid PNG (1x1 transparent pixel)
		cfg.ScreenshotPNG = []byte{
			0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
			0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
			0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
			0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
			0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
			0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
			0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
			0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
			0x42, 0x60, 0x82,
		}
	}
	return &Client{Config: cfg}
}

func (c *Client) record(call Call) error {
	if c.Config.OpDelay > 0 {
		time.Sleep(c.Config.OpDelay)
	}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
	return c.Config.Err
}

// Calls returns a copy of the recorded operations.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Screenshot returns the configured PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	if err := c.record(Call{Op: "screenshot"}); err != nil {
		return nil, err
	}
	return c.Config.ScreenshotPNG, nil
}

// UIText returns the configured UI elements.
func (c *Client) UIText(ctx context.Context) ([]core.TextElement, error) {
	if err := c.record(Call{Op: "ui_text"}); err != nil {
		return nil, err
	}
	return c.Config.UIElements, nil
}

// Tap records the tap coordinates.
func (c *Client) Tap(ctx context.Context, x, y int) error {
	return c.record(Call{Op: "tap", X: x, Y: y})
}

// TypeText records the typed text.
func (c *Client) TypeText(ctx context.Context, text string) error {
	return c.record(Call{Op: "type_text", Text: text})
}

// RunShell records the command and returns the configured output.
func (c *Client) RunShell(ctx context.Context, command string) (string, error) {
	if err := c.record(Call{Op: "run_shell", Text: command}); err != nil {
		return "", err
	}
	return c.Config.ShellOutput, nil
}
