// Package lifecycle manages the external Everything engine process for
// zero-config UX. It handles installation detection, startup, and readiness
// polling against the engine's IPC window.
package lifecycle

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/transport"
)

const (
	// StartupTimeout is how long to wait for the engine to come up.
	StartupTimeout = 30 * time.Second

	// ReadyPollInterval is the initial polling interval for WaitForReady.
	ReadyPollInterval = 100 * time.Millisecond

	// MaxReadyPollInterval caps the exponential backoff.
	MaxReadyPollInterval = 2 * time.Second
)

// wellKnownPaths are the standard Everything install locations, checked when
// the binary is not on PATH.
var wellKnownPaths = []string{
	`C:\Program Files\Everything\Everything.exe`,
	`C:\Program Files (x86)\Everything\Everything.exe`,
}

// EngineManager handles Everything engine lifecycle operations.
type EngineManager struct {
	locator transport.Locator

	// For testing: override command execution and filesystem probes.
	execCommand func(name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
	fileExists  func(path string) bool
}

// EngineState represents the current state of the engine.
type EngineState struct {
	Installed     bool
	InstalledPath string
	Running       bool
}

// NewEngineManager creates a manager that checks readiness through the given
// locator.
func NewEngineManager(locator transport.Locator) *EngineManager {
	return &EngineManager{
		locator:     locator,
		execCommand: exec.Command,
		lookPath:    exec.LookPath,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// State probes the engine's installation and running status.
func (m *EngineManager) State() EngineState {
	var st EngineState

	if path, err := m.lookPath("Everything.exe"); err == nil {
		st.Installed = true
		st.InstalledPath = path
	} else {
		for _, p := range wellKnownPaths {
			if m.fileExists(p) {
				st.Installed = true
				st.InstalledPath = p
				break
			}
		}
	}

	if _, err := m.locator.Locate(); err == nil {
		st.Running = true
	}
	return st
}

// Start launches the engine in background mode and waits for its IPC window
// to appear. A no-op when the engine is already running.
func (m *EngineManager) Start(ctx context.Context) error {
	st := m.State()
	if st.Running {
		return nil
	}
	if !st.Installed {
		return errors.EngineNotRunning("Everything is not installed").
			WithSuggestion("Install Everything from voidtools.com, then retry.")
	}

	// -startup runs minimized to tray without opening the search window.
	cmd := m.execCommand(st.InstalledPath, "-startup")
	cmd.Dir = filepath.Dir(st.InstalledPath)
	if err := cmd.Start(); err != nil {
		return errors.EngineNotRunning("failed to launch Everything").
			WithDetail("path", st.InstalledPath).
			WithDetail("cause", err.Error())
	}

	return m.WaitForReady(ctx)
}

// WaitForReady polls until the engine's IPC window exists, with exponential
// backoff, bounded by StartupTimeout or the context.
func (m *EngineManager) WaitForReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, StartupTimeout)
	defer cancel()

	interval := ReadyPollInterval
	for {
		if _, err := m.locator.Locate(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.EngineNotRunning("engine did not become ready in time")
		case <-time.After(interval):
		}

		interval *= 2
		if interval > MaxReadyPollInterval {
			interval = MaxReadyPollInterval
		}
	}
}
