// Package device is the action layer: everything that touches a physical
// device goes through a Client.
package device

import (
	"context"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// Client executes primitive operations on one device. Implementations
// serialize device access; callers may share a Client across goroutines.
//
// Failures map to core.ErrDeviceUnreachable (no answer from the device)
// or core.ErrDeviceError (the device answered with an error).
type Client interface {
	// Screenshot captures the current screen as PNG bytes
	Screenshot(ctx context.Context) ([]byte, error)

	// UIText returns the text elements of the current UI hierarchy,
	// in document order with Confidence 100 and Source UI
	UIText(ctx context.Context) ([]core.TextElement, error)

	// Tap taps the screen at device pixel coordinates
	Tap(ctx context.Context, x, y int) error

	// TypeText types text into the focused element
	TypeText(ctx context.Context, text string) error

	// RunShell runs a shell command on the device and returns its output
	RunShell(ctx context.Context, command string) (string, error)
}
