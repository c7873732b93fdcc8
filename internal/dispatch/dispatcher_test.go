package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/internal/ipc/ipctest"
	"github.com/rweijnen/everything-mcp/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const engineHandle = transport.Handle(0xE1)

// fakeTransport is an in-memory Transport. The worker drains it; tests feed
// it through inject or the onSend hook.
type fakeTransport struct {
	mu      sync.Mutex
	inbox   []transport.Message
	sent    [][]byte
	openErr error
	sendErr error

	// onSend runs inside SendCopyData with the lock released; typical use
	// is queueing the engine's reply.
	onSend func(tag uint32, data []byte)

	wordFn func(code uint32) uint64
}

func (f *fakeTransport) Open() error                   { return f.openErr }
func (f *fakeTransport) ReplyTarget() transport.Handle { return 0x51 }
func (f *fakeTransport) Close() error                  { return nil }

func (f *fakeTransport) Drain() ([]transport.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.inbox
	f.inbox = nil
	return out, nil
}

func (f *fakeTransport) SendCopyData(target transport.Handle, tag uint32, data []byte) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	hook := f.onSend
	f.mu.Unlock()

	if hook != nil {
		hook(tag, data)
	}
	return nil
}

func (f *fakeTransport) SendWord(target transport.Handle, code uint32) (uint64, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	if f.wordFn != nil {
		return f.wordFn(code), nil
	}
	return 0, nil
}

func (f *fakeTransport) inject(m transport.Message) {
	f.mu.Lock()
	f.inbox = append(f.inbox, m)
	f.mu.Unlock()
}

func (f *fakeTransport) inboxLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inbox)
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeLocator struct {
	mu      sync.Mutex
	handle  transport.Handle
	err     error
	alive   bool
	locates int
}

func (f *fakeLocator) Locate() (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locates++
	if f.err != nil {
		return 0, f.err
	}
	return f.handle, nil
}

func (f *fakeLocator) IsAlive(h transport.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive && h == f.handle
}

func (f *fakeLocator) locateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locates
}

func newTestDispatcher(t *testing.T, tr transport.Transport, loc transport.Locator) *Dispatcher {
	t.Helper()
	d, err := New(tr, loc, Options{
		RequestTimeout: 2 * time.Second,
		PollInterval:   time.Millisecond,
		StopTimeout:    2 * time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func basicReplyFromEngine(names ...string) transport.Message {
	items := make([]ipctest.BasicItem, len(names))
	for i, n := range names {
		items[i] = ipctest.BasicItem{Name: n, Path: `C:\x`}
	}
	return transport.Message{
		Sender: engineHandle,
		Tag:    ipc.CopyDataReply,
		Data:   ipctest.BasicReply(0, uint32(len(items)), uint32(len(items)), 0, items),
	}
}

func TestSearch_DeliversReply(t *testing.T) {
	tr := &fakeTransport{}
	tr.onSend = func(tag uint32, data []byte) {
		tr.inject(basicReplyFromEngine("a.txt", "b.txt"))
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	page, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "*.txt"})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "a.txt", page.Records[0].Name)
}

func TestSearch_ExtendedReply(t *testing.T) {
	tr := &fakeTransport{}
	mask := ipc.RequestName | ipc.RequestSize
	tr.onSend = func(tag uint32, data []byte) {
		assert.Equal(t, ipc.CopyDataQuery2, tag)
		tr.inject(transport.Message{
			Sender: engineHandle,
			Tag:    ipc.CopyDataReply,
			Data: ipctest.ExtendedReply(1, 0, mask, 0, []ipctest.ExtendedItem{
				{Name: "big.iso", Size: 1 << 30},
			}),
		})
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	page, err := d.Search(context.Background(), &ipc.SearchRequest{
		Query:   "big",
		Request: mask,
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.NotNil(t, page.Records[0].Size)
	assert.Equal(t, int64(1<<30), *page.Records[0].Size)
}

func TestSearch_ForeignSenderDiscarded(t *testing.T) {
	tr := &fakeTransport{}
	tr.onSend = func(tag uint32, data []byte) {
		// A stray message from an unrelated window arrives first; the
		// genuine reply follows.
		tr.inject(transport.Message{
			Sender: transport.Handle(0xBAD),
			Tag:    ipc.CopyDataReply,
			Data:   []byte{1, 2, 3},
		})
		tr.inject(basicReplyFromEngine("real.txt"))
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	page, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "real"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "real.txt", page.Records[0].Name)
}

func TestSearch_ConcurrentCallersSerialized(t *testing.T) {
	tr := &fakeTransport{}
	var maxOutstanding atomic.Int32
	tr.onSend = func(tag uint32, data []byte) {
		// The previous reply must have been consumed before the worker
		// dispatches the next search.
		if n := int32(tr.inboxLen()); n > maxOutstanding.Load() {
			maxOutstanding.Store(n)
		}
		tr.inject(basicReplyFromEngine("hit.txt"))
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, callers, tr.sentCount())
	assert.Equal(t, int32(0), maxOutstanding.Load(), "a send overlapped an unconsumed reply")
}

func TestSearch_TimeoutReleasesSlot(t *testing.T) {
	tr := &fakeTransport{}
	var swallow atomic.Bool
	swallow.Store(true)
	tr.onSend = func(tag uint32, data []byte) {
		if swallow.Load() {
			return // engine never replies
		}
		tr.inject(basicReplyFromEngine("late.txt"))
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Search(ctx, &ipc.SearchRequest{Query: "lost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTimeout)

	// The slot must be released: a subsequent search succeeds.
	swallow.Store(false)
	page, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "next"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
}

func TestClose_FailsPendingAndQueued(t *testing.T) {
	tr := &fakeTransport{} // never replies
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	const callers = 5
	var wg sync.WaitGroup
	errCh := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := d.Search(ctx, &ipc.SearchRequest{Query: "doomed"})
			errCh <- err
		}()
	}

	// Let the first search occupy the slot and the rest queue up.
	require.Eventually(t, func() bool { return tr.sentCount() >= 1 },
		time.Second, time.Millisecond)

	require.NoError(t, d.Close())
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrShuttingDown)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	tr := &fakeTransport{}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)
	require.NoError(t, d.Close())

	_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrShuttingDown)

	// Close stays idempotent.
	assert.NoError(t, d.Close())
}

func TestSearch_EngineNotRunning(t *testing.T) {
	tr := &fakeTransport{}
	loc := &fakeLocator{err: errors.EngineNotRunning("no window")}
	d := newTestDispatcher(t, tr, loc)

	_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEngineNotRunning)
	assert.True(t, errors.IsRetryable(err))
}

func TestSearch_StaleEngineRelocated(t *testing.T) {
	tr := &fakeTransport{}
	tr.onSend = func(tag uint32, data []byte) {
		tr.inject(basicReplyFromEngine("x"))
	}
	// alive == false forces a fresh Locate on every dispatch.
	loc := &fakeLocator{handle: engineHandle, alive: false}
	d := newTestDispatcher(t, tr, loc)

	for i := 0; i < 3; i++ {
		_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, loc.locateCount())
}

func TestSendWord(t *testing.T) {
	tr := &fakeTransport{wordFn: func(code uint32) uint64 {
		switch ipc.StatusCode(code) {
		case ipc.GetMajorVersion:
			return 1
		case ipc.IsDBLoaded:
			return 1
		default:
			return 0
		}
	}}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	major, err := d.SendWord(context.Background(), ipc.GetMajorVersion)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), major)

	loaded, err := d.SendWord(context.Background(), ipc.IsDBLoaded)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded)
}

func TestNew_OpenFailure(t *testing.T) {
	tr := &fakeTransport{openErr: errors.InternalError("no window for you", nil)}
	loc := &fakeLocator{handle: engineHandle, alive: true}

	d, err := New(tr, loc, Options{}, nil)
	require.Error(t, err)
	assert.Nil(t, d)
}

func TestSearch_InvalidQueryRejectedBeforeQueue(t *testing.T) {
	tr := &fakeTransport{}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	long := make([]byte, ipc.MaxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: string(long)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrQueryTooLarge)
	assert.Equal(t, 0, tr.sentCount(), "oversized query must not reach the wire")
}

func TestSearch_SendFailure(t *testing.T) {
	tr := &fakeTransport{sendErr: errors.SendFailed("engine hung", nil)}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSendFailed)
}

func TestSearch_MalformedReplySurfaced(t *testing.T) {
	tr := &fakeTransport{}
	tr.onSend = func(tag uint32, data []byte) {
		tr.inject(transport.Message{
			Sender: engineHandle,
			Tag:    ipc.CopyDataReply,
			Data:   []byte{0xDE, 0xAD}, // far too short for any layout
		})
	}
	loc := &fakeLocator{handle: engineHandle, alive: true}
	d := newTestDispatcher(t, tr, loc)

	_, err := d.Search(context.Background(), &ipc.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedReply)
}
