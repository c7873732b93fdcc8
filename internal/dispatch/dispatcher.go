// Package dispatch serializes concurrent search requests onto the single
// IPC endpoint.
//
// Win32 window handles and their message queues are owned by the thread that
// created them, so one worker goroutine is locked to an OS thread for the
// dispatcher's lifetime. It owns the reply window, sends every request, pumps
// incoming replies, and correlates each reply with the one search awaiting
// it. Callers on any goroutine submit through a bounded channel and block on
// a per-request result channel, racing their own context deadline.
package dispatch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/internal/transport"
)

// Options tunes dispatcher timing and queueing.
type Options struct {
	// RequestTimeout bounds a request when the caller's context carries no
	// deadline of its own.
	RequestTimeout time.Duration

	// PollInterval is how long the worker sleeps when it has nothing to
	// do. It bounds reply latency from the idle state.
	PollInterval time.Duration

	// StopTimeout bounds how long Close waits for the worker to exit.
	StopTimeout time.Duration

	// QueueSize is the submission channel capacity. Submitters beyond it
	// block until the worker catches up.
	QueueSize int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 5 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 2 * time.Millisecond
	}
	if out.StopTimeout <= 0 {
		out.StopTimeout = 3 * time.Second
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	return out
}

// Dispatcher owns the IPC endpoint and serializes all traffic through it.
type Dispatcher struct {
	tr      transport.Transport
	locator transport.Locator
	opts    Options
	logger  *slog.Logger

	subCh  chan *submission
	stopCh chan struct{}
	doneCh chan struct{}

	// mu orders Submit's in-flight registration against Close, so the
	// worker's final drain cannot miss a submission.
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	closeOnce sync.Once
	closeErr  error

	// Worker-only state below; never touched from other goroutines.
	pending    *pendingReply
	lastEngine transport.Handle
}

// New starts the dispatcher's worker thread and opens the IPC endpoint on
// it. The returned dispatcher is ready for concurrent use.
func New(tr transport.Transport, locator transport.Locator, opts Options, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		tr:      tr,
		locator: locator,
		opts:    opts.withDefaults(),
		logger:  logger.With("component", "dispatch"),
		subCh:   make(chan *submission, opts.withDefaults().QueueSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	ready := make(chan error, 1)
	go d.worker(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return d, nil
}

// Search sends one query and blocks until its reply, the context deadline,
// or disposal. Safe for concurrent use.
func (d *Dispatcher) Search(ctx context.Context, req *ipc.SearchRequest) (*ipc.ReplyPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub := &submission{kind: opSearch, req: req}
	out, err := d.submit(ctx, sub)
	if err != nil {
		return nil, err
	}
	return out.page, out.err
}

// SendWord performs a single-word status exchange with the engine. The
// exchange is synchronous on the worker, so it serializes with searches.
func (d *Dispatcher) SendWord(ctx context.Context, code ipc.StatusCode) (uint64, error) {
	sub := &submission{kind: opWord, code: code}
	out, err := d.submit(ctx, sub)
	if err != nil {
		return 0, err
	}
	return out.word, out.err
}

func (d *Dispatcher) submit(ctx context.Context, sub *submission) (outcome, error) {
	// Register as in-flight before enqueueing; Close waits for in-flight
	// submitters before the worker's final drain, so a submission can never
	// land in the queue unobserved.
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return outcome{}, errors.ErrShuttingDown
	}
	d.inflight.Add(1)
	d.mu.RUnlock()
	defer d.inflight.Done()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.RequestTimeout)
		defer cancel()
	}
	deadline, _ := ctx.Deadline()
	sub.deadline = deadline
	sub.id = uuid.NewString()
	sub.result = make(chan outcome, 1)

	select {
	case d.subCh <- sub:
	case <-ctx.Done():
		return outcome{}, d.timeoutErr(sub, "queue wait")
	}

	select {
	case out := <-sub.result:
		return out, nil
	case <-ctx.Done():
		d.logger.Debug("request deadline elapsed", "request_id", sub.id)
		return outcome{}, d.timeoutErr(sub, "awaiting reply")
	}
}

func (d *Dispatcher) timeoutErr(sub *submission, phase string) error {
	return errors.New(errors.ErrCodeRequestTimeout, "IPC request timed out", nil).
		WithDetail("request_id", sub.id).
		WithDetail("phase", phase)
}

// Close disposes the dispatcher exactly once: every queued and in-flight
// request fails with a shutting-down error, the endpoint is closed, and the
// worker thread exits. Close is idempotent and safe to call concurrently.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.stopCh)

		select {
		case <-d.doneCh:
		case <-time.After(d.opts.StopTimeout):
			d.closeErr = errors.InternalError("dispatcher worker did not stop in time", nil)
		}
	})
	return d.closeErr
}

// worker runs on a locked OS thread for the dispatcher's lifetime.
func (d *Dispatcher) worker(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := d.tr.Open(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	defer close(d.doneCh)
	defer func() {
		if err := d.tr.Close(); err != nil {
			d.logger.Warn("failed to close IPC endpoint", "error", err)
		}
	}()

	for {
		select {
		case <-d.stopCh:
			d.failAll()
			return
		default:
		}

		progress := d.pump()

		if d.pending != nil && d.pending.expired(time.Now()) {
			// The caller has already timed out; release the slot so the
			// next search is not wedged behind a reply that may never come.
			d.logger.Debug("releasing expired awaiting slot",
				"request_id", d.pending.sub.id)
			d.finish(outcome{err: d.timeoutErr(d.pending.sub, "expired")})
			progress = true
		}

		if d.pending == nil {
			select {
			case sub := <-d.subCh:
				d.dispatch(sub)
				progress = true
			default:
			}
		}

		if !progress {
			time.Sleep(d.opts.PollInterval)
		}
	}
}

// pump drains the endpoint and delivers any reply belonging to the awaiting
// search. Messages from windows other than the located engine are discarded.
func (d *Dispatcher) pump() bool {
	msgs, err := d.tr.Drain()
	if err != nil {
		d.logger.Warn("failed to drain IPC endpoint", "error", err)
		return false
	}

	progress := false
	for _, m := range msgs {
		progress = true
		if d.pending == nil {
			d.logger.Debug("discarding reply with no awaiting request",
				"sender", uintptr(m.Sender))
			continue
		}
		if m.Sender != d.pending.engine {
			d.logger.Debug("discarding message from foreign sender",
				"sender", uintptr(m.Sender), "engine", uintptr(d.pending.engine))
			continue
		}

		page, decErr := ipc.Decode(m.Data, d.pending.extended)
		if decErr != nil {
			d.finish(outcome{err: decErr})
			continue
		}
		d.logger.Debug("reply delivered",
			"request_id", d.pending.sub.id,
			"items", len(page.Records),
			"malformed", page.Malformed)
		d.finish(outcome{page: page})
	}
	return progress
}

// dispatch sends one submission to the engine. Searches occupy the awaiting
// slot; word exchanges complete synchronously.
func (d *Dispatcher) dispatch(sub *submission) {
	if !sub.deadline.IsZero() && time.Now().After(sub.deadline) {
		// Stale queue entry; the caller is already gone.
		d.deliver(sub, outcome{err: d.timeoutErr(sub, "stale in queue")})
		return
	}

	engine, err := d.engineHandle()
	if err != nil {
		d.deliver(sub, outcome{err: err})
		return
	}

	switch sub.kind {
	case opWord:
		word, err := d.tr.SendWord(engine, uint32(sub.code))
		d.deliver(sub, outcome{word: word, err: err})

	case opSearch:
		buf, err := ipc.Encode(sub.req, uint32(d.tr.ReplyTarget()), ipc.CopyDataReply)
		if err != nil {
			d.deliver(sub, outcome{err: err})
			return
		}
		if err := d.tr.SendCopyData(engine, sub.req.Tag(), buf); err != nil {
			d.deliver(sub, outcome{err: err})
			return
		}
		d.logger.Debug("search dispatched",
			"request_id", sub.id,
			"extended", sub.req.Extended(),
			"bytes", len(buf))
		d.pending = &pendingReply{
			sub:      sub,
			engine:   engine,
			extended: sub.req.Extended(),
			deadline: sub.deadline,
		}
	}
}

// engineHandle returns a live engine window handle, re-locating when the
// cached one has gone stale.
func (d *Dispatcher) engineHandle() (transport.Handle, error) {
	if d.lastEngine != 0 && d.locator.IsAlive(d.lastEngine) {
		return d.lastEngine, nil
	}
	h, err := d.locator.Locate()
	if err != nil {
		d.lastEngine = 0
		return 0, err
	}
	d.lastEngine = h
	return h, nil
}

// finish resolves the awaiting slot.
func (d *Dispatcher) finish(out outcome) {
	d.deliver(d.pending.sub, out)
	d.pending = nil
}

// deliver hands an outcome to the submitter. The result channel is buffered,
// so a caller that already gave up never blocks the worker.
func (d *Dispatcher) deliver(sub *submission, out outcome) {
	sub.result <- out
}

// failAll resolves the awaiting slot and every queued submission with a
// shutting-down error. It closes the submission channel only after all
// in-flight submitters have enqueued or bailed, so nothing is stranded.
func (d *Dispatcher) failAll() {
	if d.pending != nil {
		d.finish(outcome{err: errors.ErrShuttingDown})
	}

	go func() {
		d.inflight.Wait()
		close(d.subCh)
	}()
	for sub := range d.subCh {
		d.deliver(sub, outcome{err: errors.ErrShuttingDown})
	}
}
