//go:build !windows

package transport

import "github.com/rweijnen/everything-mcp/internal/errors"

// New reports that window-message IPC does not exist on this platform.
// Callers surface the error instead of degrading silently.
func New(opts Options) (Transport, error) {
	return nil, errors.ErrIPCUnsupported
}

// NewLocator reports that window-message IPC does not exist on this platform.
func NewLocator(windowClass, instance string) (Locator, error) {
	return nil, errors.ErrIPCUnsupported
}
