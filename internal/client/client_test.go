package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rweijnen/everything-mcp/internal/config"
	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/ipc"
)

// fakeSearcher records requests and plays back canned pages and words.
type fakeSearcher struct {
	mu        sync.Mutex
	requests  []*ipc.SearchRequest
	page      *ipc.ReplyPage
	searchErr error
	words     map[ipc.StatusCode]uint64
	wordsSent []ipc.StatusCode
	closed    bool
}

func (f *fakeSearcher) Search(ctx context.Context, req *ipc.SearchRequest) (*ipc.ReplyPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.page != nil {
		return f.page, nil
	}
	return &ipc.ReplyPage{}, nil
}

func (f *fakeSearcher) SendWord(ctx context.Context, code ipc.StatusCode) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wordsSent = append(f.wordsSent, code)
	return f.words[code], nil
}

func (f *fakeSearcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSearcher) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSearcher) lastRequest() *ipc.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(f *fakeSearcher, mutate func(*config.Config)) *Client {
	cfg := config.NewConfig()
	cfg.Cache.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	return NewWithSearcher(f, cfg, nil)
}

func TestSearch_AppliesDefaults(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	_, err := c.Search(context.Background(), "report", SearchOptions{})
	require.NoError(t, err)

	req := f.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "report", req.Query)
	assert.Equal(t, uint32(config.DefaultMaxResults), req.MaxResults)
	assert.False(t, req.Extended())
}

func TestSearch_MapsOptions(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	_, err := c.Search(context.Background(), "q", SearchOptions{
		MatchCase:  true,
		Regex:      true,
		Offset:     40,
		MaxResults: 20,
		Sort:       ipc.SortSizeDescending,
		Metadata:   ipc.RequestName | ipc.RequestSize,
	})
	require.NoError(t, err)

	req := f.lastRequest()
	assert.Equal(t, ipc.MatchCase|ipc.MatchRegex, req.Flags)
	assert.Equal(t, uint32(40), req.Offset)
	assert.Equal(t, uint32(20), req.MaxResults)
	assert.Equal(t, ipc.SortSizeDescending, req.Sort)
	assert.True(t, req.Extended())
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := c.Search(context.Background(), q, SearchOptions{})
		require.Error(t, err, "query %q", q)
		assert.ErrorIs(t, err, errors.ErrQueryEmpty)
	}
	assert.Zero(t, f.searchCount())
}

func TestSearch_CacheHitSkipsDispatch(t *testing.T) {
	f := &fakeSearcher{page: &ipc.ReplyPage{TotalItems: 3}}
	c := newTestClient(f, func(cfg *config.Config) {
		cfg.Cache.Enabled = true
	})

	for i := 0; i < 3; i++ {
		page, err := c.Search(context.Background(), "same", SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, uint32(3), page.TotalItems)
	}
	assert.Equal(t, 1, f.searchCount(), "repeat queries must be served from cache")

	// A different request shape misses.
	_, err := c.Search(context.Background(), "same", SearchOptions{Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, f.searchCount())
}

func TestSearchByExtension(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	_, err := c.SearchByExtension(context.Background(), []string{".go", "md"}, "readme", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ext:go;md readme", f.lastRequest().Query)

	_, err = c.SearchByExtension(context.Background(), nil, "", SearchOptions{})
	require.Error(t, err)

	_, err = c.SearchByExtension(context.Background(), []string{" ", "."}, "", SearchOptions{})
	require.Error(t, err)
}

func TestSearchInFolder(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	_, err := c.SearchInFolder(context.Background(), `C:\Users\rw\`, "*.pdf", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, `path:"C:\Users\rw" *.pdf`, f.lastRequest().Query)

	_, err = c.SearchInFolder(context.Background(), "  ", "x", SearchOptions{})
	require.Error(t, err)
}

func TestSearchFilesAndFolders(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	_, err := c.SearchFiles(context.Background(), "budget", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "file: budget", f.lastRequest().Query)

	_, err = c.SearchFolders(context.Background(), "projects", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "folder: projects", f.lastRequest().Query)
}

func TestVersionAndStatus(t *testing.T) {
	f := &fakeSearcher{words: map[ipc.StatusCode]uint64{
		ipc.GetMajorVersion:  1,
		ipc.GetMinorVersion:  4,
		ipc.GetRevision:      1,
		ipc.GetBuildNumber:   1024,
		ipc.GetTargetMachine: ipc.TargetMachineX64,
		ipc.IsDBLoaded:       1,
		ipc.IsDBBusy:         0,
		ipc.IsAdmin:          1,
	}}
	c := newTestClient(f, nil)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.1.1024", v)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.1.1024", st.Version)
	assert.Equal(t, "x64", st.TargetMachine)
	assert.True(t, st.DBLoaded)
	assert.False(t, st.DBBusy)
	assert.True(t, st.IsAdmin)
}

func TestRebuildAndSave(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)

	require.NoError(t, c.RebuildDB(context.Background()))
	require.NoError(t, c.SaveDB(context.Background()))
	assert.Equal(t, []ipc.StatusCode{ipc.RebuildDB, ipc.SaveDB}, f.wordsSent)
}

func TestClose_Propagates(t *testing.T) {
	f := &fakeSearcher{}
	c := newTestClient(f, nil)
	require.NoError(t, c.Close())
	assert.True(t, f.closed)
}

func TestSearch_ErrorPassthrough(t *testing.T) {
	f := &fakeSearcher{searchErr: errors.EngineNotRunning("gone")}
	c := newTestClient(f, nil)

	_, err := c.Search(context.Background(), "q", SearchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEngineNotRunning)
}

func TestMetrics_RecordsSearches(t *testing.T) {
	f := &fakeSearcher{page: &ipc.ReplyPage{TotalItems: 2}}
	c := newTestClient(f, func(cfg *config.Config) {
		cfg.Cache.Enabled = true
	})

	_, err := c.Search(context.Background(), "docs", SearchOptions{})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "docs", SearchOptions{})
	require.NoError(t, err)

	f.searchErr = errors.SendFailed("send failed", nil)
	_, err = c.Search(context.Background(), "other", SearchOptions{})
	require.Error(t, err)

	snap := c.Metrics()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.FailedQueries)
	assert.Equal(t, int64(1), snap.ExactRepeatCount)
}
