//go:build windows

package transport

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

var (
	procFindWindowW = user32.NewProc("FindWindowW")
	procIsWindow    = user32.NewProc("IsWindow")
)

// windowLocator finds the engine's IPC control window by class name. Named
// instances run under a derived class, "<class>_(<instance>)".
type windowLocator struct {
	class string
}

// NewLocator builds a locator for the given engine window class and optional
// instance name.
func NewLocator(windowClass, instance string) (Locator, error) {
	if windowClass == "" {
		return nil, errors.ValidationError("engine window class must not be empty", nil)
	}
	class := windowClass
	if instance != "" {
		class = fmt.Sprintf("%s_(%s)", windowClass, instance)
	}
	return &windowLocator{class: class}, nil
}

func (l *windowLocator) Locate() (Handle, error) {
	className, err := windows.UTF16PtrFromString(l.class)
	if err != nil {
		return 0, errors.InternalError("invalid engine window class", err)
	}

	hwnd, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(className)), 0)
	if hwnd == 0 {
		return 0, errors.EngineNotRunning(
			fmt.Sprintf("no window of class %q found", l.class))
	}
	return Handle(hwnd), nil
}

func (l *windowLocator) IsAlive(h Handle) bool {
	if h == 0 {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}
