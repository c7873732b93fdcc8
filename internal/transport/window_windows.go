//go:build windows

package transport

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procRegisterClassExW    = user32.NewProc("RegisterClassExW")
	procCreateWindowExW     = user32.NewProc("CreateWindowExW")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procDefWindowProcW      = user32.NewProc("DefWindowProcW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

const (
	wmCopyData = 0x004A

	pmRemove = 0x0001

	smtoBlock       = 0x0001
	smtoAbortIfHung = 0x0002

	// HWND_MESSAGE: parent for message-only windows.
	hwndMessage = ^uintptr(2)

	replyWindowClass = "EverythingMCP_Reply"
)

// copyDataStruct mirrors the Win32 COPYDATASTRUCT layout.
type copyDataStruct struct {
	DwData uintptr
	CbData uint32
	LpData uintptr
}

// msg mirrors the Win32 MSG layout.
type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
	_       uint32 // lPrivate padding on newer SDKs
}

type wndClassExW struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         uintptr
	HCursor       uintptr
	HbrBackground uintptr
	LpszMenuName  *uint16
	LpszClassName *uint16
}

// The window procedure is a single process-wide callback; it routes
// deliveries to the owning messageWindow through this registry.
var (
	registryMu sync.Mutex
	registry   = map[uintptr]*messageWindow{}

	classOnce sync.Once
	classErr  error
	wndProcCB uintptr
)

// messageWindow is the Windows Transport: a message-only window whose
// WM_COPYDATA deliveries are copied into an inbox and handed out by Drain.
type messageWindow struct {
	sendTimeoutMs uintptr

	hwnd uintptr

	mu    sync.Mutex
	inbox []Message
}

// New returns an unopened Windows transport. The window itself is created by
// Open on the thread that will pump it.
func New(opts Options) (Transport, error) {
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &messageWindow{sendTimeoutMs: uintptr(timeout.Milliseconds())}, nil
}

func wndProc(hwnd, message, wparam, lparam uintptr) uintptr {
	if message == wmCopyData {
		cds := (*copyDataStruct)(unsafe.Pointer(lparam))
		data := make([]byte, cds.CbData)
		if cds.CbData > 0 && cds.LpData != 0 {
			copy(data, unsafe.Slice((*byte)(unsafe.Pointer(cds.LpData)), cds.CbData))
		}

		registryMu.Lock()
		mw := registry[hwnd]
		registryMu.Unlock()
		if mw != nil {
			mw.mu.Lock()
			mw.inbox = append(mw.inbox, Message{
				Sender: Handle(wparam),
				Tag:    uint32(cds.DwData),
				Data:   data,
			})
			mw.mu.Unlock()
		}
		return 1
	}

	ret, _, _ := procDefWindowProcW.Call(hwnd, message, wparam, lparam)
	return ret
}

func registerClass() error {
	classOnce.Do(func() {
		wndProcCB = windows.NewCallback(wndProc)

		name, err := windows.UTF16PtrFromString(replyWindowClass)
		if err != nil {
			classErr = err
			return
		}
		wc := wndClassExW{
			CbSize:        uint32(unsafe.Sizeof(wndClassExW{})),
			LpfnWndProc:   wndProcCB,
			LpszClassName: name,
		}
		atom, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
		if atom == 0 {
			classErr = fmt.Errorf("RegisterClassExW: %w", callErr)
		}
	})
	return classErr
}

func (w *messageWindow) Open() error {
	if err := registerClass(); err != nil {
		return errors.New(errors.ErrCodeInternal, "failed to register reply window class", err)
	}

	className, err := windows.UTF16PtrFromString(replyWindowClass)
	if err != nil {
		return errors.InternalError("invalid window class name", err)
	}
	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0, // no title
		0, // no style
		0, 0, 0, 0,
		hwndMessage,
		0, 0, 0,
	)
	if hwnd == 0 {
		return errors.New(errors.ErrCodeInternal, "failed to create reply window", callErr)
	}

	registryMu.Lock()
	registry[hwnd] = w
	registryMu.Unlock()

	w.hwnd = hwnd
	return nil
}

func (w *messageWindow) ReplyTarget() Handle {
	return Handle(w.hwnd)
}

func (w *messageWindow) Drain() ([]Message, error) {
	// Pump everything pending; WM_COPYDATA deliveries land in the inbox
	// synchronously during DispatchMessageW.
	var m msg
	for {
		ret, _, _ := procPeekMessageW.Call(
			uintptr(unsafe.Pointer(&m)), w.hwnd, 0, 0, pmRemove,
		)
		if ret == 0 {
			break
		}
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}

	w.mu.Lock()
	out := w.inbox
	w.inbox = nil
	w.mu.Unlock()
	return out, nil
}

func (w *messageWindow) SendCopyData(target Handle, tag uint32, data []byte) error {
	cds := copyDataStruct{DwData: uintptr(tag), CbData: uint32(len(data))}
	if len(data) > 0 {
		cds.LpData = uintptr(unsafe.Pointer(&data[0]))
	}

	var result uintptr
	ret, _, callErr := procSendMessageTimeoutW.Call(
		uintptr(target),
		wmCopyData,
		w.hwnd,
		uintptr(unsafe.Pointer(&cds)),
		smtoBlock|smtoAbortIfHung,
		w.sendTimeoutMs,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return errors.SendFailed("engine did not accept the request", callErr).
			WithDetail("target", fmt.Sprintf("%#x", uintptr(target)))
	}
	return nil
}

func (w *messageWindow) SendWord(target Handle, code uint32) (uint64, error) {
	var result uintptr
	ret, _, callErr := procSendMessageTimeoutW.Call(
		uintptr(target),
		0x0400, // WM_USER
		uintptr(code),
		0,
		smtoBlock|smtoAbortIfHung,
		w.sendTimeoutMs,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return 0, errors.SendFailed("engine did not answer the status request", callErr).
			WithDetail("code", fmt.Sprintf("%d", code))
	}
	return uint64(result), nil
}

func (w *messageWindow) Close() error {
	if w.hwnd == 0 {
		return nil
	}

	registryMu.Lock()
	delete(registry, w.hwnd)
	registryMu.Unlock()

	ret, _, callErr := procDestroyWindow.Call(w.hwnd)
	w.hwnd = 0
	if ret == 0 {
		return errors.InternalError("failed to destroy reply window", callErr)
	}
	return nil
}
