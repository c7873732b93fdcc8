// Package transport owns the platform IPC endpoint: a hidden message-only
// window that sends WM_COPYDATA requests to the Everything engine and
// receives its asynchronous replies.
//
// Everything above this package is platform-neutral. The dispatcher drives a
// Transport from its dedicated OS thread; tests substitute in-memory fakes.
package transport

import "time"

// Handle identifies a window endpoint. Zero is never a valid handle.
type Handle uintptr

// Message is one WM_COPYDATA delivery, with the payload copied out of the
// sender's address space before the sending process was released.
type Message struct {
	// Sender is the window that sent the message. Replies are authenticated
	// by comparing this against the located engine handle.
	Sender Handle

	// Tag is the COPYDATA tag the sender attached.
	Tag uint32

	// Data is an owned copy of the payload.
	Data []byte
}

// Transport is the IPC endpoint. Open, Drain, and Close must all be called
// from the same OS thread; the window created by Open belongs to that thread
// and its message queue is pumped there.
type Transport interface {
	// Open creates the reply window on the calling thread.
	Open() error

	// ReplyTarget returns the handle replies should be addressed to.
	// Valid only between Open and Close.
	ReplyTarget() Handle

	// Drain pumps the thread's message queue without blocking and returns
	// the WM_COPYDATA messages that arrived since the previous call.
	Drain() ([]Message, error)

	// SendCopyData delivers a tagged payload to the target window. It
	// blocks until the target processes the message or the send timeout
	// elapses.
	SendCopyData(target Handle, tag uint32, data []byte) error

	// SendWord sends a single-word status request and returns the target's
	// immediate word-sized reply.
	SendWord(target Handle, code uint32) (uint64, error)

	// Close destroys the window. Further sends fail.
	Close() error
}

// Locator finds the engine's IPC control window.
type Locator interface {
	// Locate returns the engine window handle, or an engine-not-running
	// error when no window exists.
	Locate() (Handle, error)

	// IsAlive reports whether a previously located handle still refers to
	// a live window. A recycled or destroyed handle returns false.
	IsAlive(h Handle) bool
}

// Options configures the platform transport.
type Options struct {
	// SendTimeout bounds each synchronous send so a hung engine cannot
	// wedge the dispatcher thread.
	SendTimeout time.Duration
}

// DefaultSendTimeout is used when Options.SendTimeout is zero.
const DefaultSendTimeout = 3 * time.Second
