// Package client is the high-level façade over the Everything engine: typed
// search operations, engine status, and a short-TTL result cache.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rweijnen/everything-mcp/internal/config"
	"github.com/rweijnen/everything-mcp/internal/dispatch"
	"github.com/rweijnen/everything-mcp/internal/errors"
	"github.com/rweijnen/everything-mcp/internal/ipc"
	"github.com/rweijnen/everything-mcp/internal/telemetry"
	"github.com/rweijnen/everything-mcp/internal/transport"
)

// Searcher is the dispatcher surface the client depends on. Tests substitute
// a fake; production wires *dispatch.Dispatcher.
type Searcher interface {
	Search(ctx context.Context, req *ipc.SearchRequest) (*ipc.ReplyPage, error)
	SendWord(ctx context.Context, code ipc.StatusCode) (uint64, error)
	Close() error
}

// SearchOptions refine one search call. The zero value searches everything
// with default matching and the configured result ceiling.
type SearchOptions struct {
	// Matching behavior.
	MatchCase      bool
	MatchWholeWord bool
	MatchPath      bool
	Regex          bool

	// Paging.
	Offset     uint32
	MaxResults uint32

	// Sort selects engine-side ordering; zero keeps the engine's default.
	Sort ipc.SortType

	// Metadata selects extra fields per result. A zero mask returns names
	// and paths only, over the cheaper wire layout.
	Metadata ipc.RequestFlags
}

func (o SearchOptions) flags() ipc.SearchFlags {
	var f ipc.SearchFlags
	if o.MatchCase {
		f |= ipc.MatchCase
	}
	if o.MatchWholeWord {
		f |= ipc.MatchWholeWord
	}
	if o.MatchPath {
		f |= ipc.MatchPath
	}
	if o.Regex {
		f |= ipc.MatchRegex
	}
	return f
}

// EngineStatus is a snapshot of the engine's health and identity.
type EngineStatus struct {
	Version       string `json:"version"`
	TargetMachine string `json:"target_machine"`
	DBLoaded      bool   `json:"db_loaded"`
	DBBusy        bool   `json:"db_busy"`
	IsAdmin       bool   `json:"is_admin"`
}

// Client exposes typed operations over the dispatcher and caches recent
// result pages. Safe for concurrent use.
type Client struct {
	searcher Searcher
	cfg      *config.Config
	logger   *slog.Logger

	// cache holds recent result pages keyed by the full request shape.
	// The engine's index changes underneath us, so entries expire on a
	// short TTL; nil when caching is disabled.
	cache *expirable.LRU[string, *ipc.ReplyPage]

	metrics *telemetry.QueryMetrics
}

// New builds a client backed by the platform transport and a fresh
// dispatcher. On platforms without window-message IPC it fails with an
// unsupported-IPC error.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tr, err := transport.New(transport.Options{
		SendTimeout: cfg.IPC.RequestTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}
	locator, err := transport.NewLocator(cfg.Engine.WindowClass, cfg.Engine.Instance)
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(tr, locator, dispatch.Options{
		RequestTimeout: cfg.IPC.RequestTimeout.Std(),
		PollInterval:   cfg.IPC.PollInterval.Std(),
		StopTimeout:    cfg.IPC.StopTimeout.Std(),
		QueueSize:      cfg.IPC.QueueSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	return NewWithSearcher(d, cfg, logger), nil
}

// NewWithSearcher builds a client over an existing dispatcher.
func NewWithSearcher(s Searcher, cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		searcher: s,
		cfg:      cfg,
		logger:   logger.With("component", "client"),
		metrics:  telemetry.NewQueryMetrics(),
	}
	if cfg.Cache.Enabled {
		c.cache = expirable.NewLRU[string, *ipc.ReplyPage](
			cfg.Cache.MaxEntries, nil, cfg.Cache.TTL.Std())
	}
	return c
}

// Search runs one query against the engine.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*ipc.ReplyPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ErrQueryEmpty
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = uint32(c.cfg.Search.MaxResults)
	}

	req := &ipc.SearchRequest{
		Query:      query,
		Flags:      opts.flags(),
		Offset:     opts.Offset,
		MaxResults: opts.MaxResults,
		Sort:       opts.Sort,
		Request:    opts.Metadata,
	}

	key := cacheKey(req)
	if c.cache != nil {
		if page, ok := c.cache.Get(key); ok {
			c.logger.Debug("cache hit", "query", query)
			c.metrics.Record(telemetry.QueryEvent{
				Query:       query,
				ResultCount: len(page.Records),
				TotalItems:  page.TotalItems,
				Cached:      true,
			})
			return page, nil
		}
	}

	start := time.Now()
	page, err := c.searcher.Search(ctx, req)
	if err != nil {
		c.metrics.Record(telemetry.QueryEvent{
			Query:   query,
			Latency: time.Since(start),
			Failed:  true,
		})
		return nil, err
	}
	c.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Latency:     time.Since(start),
		ResultCount: len(page.Records),
		TotalItems:  page.TotalItems,
	})
	c.logger.Debug("search completed",
		"query", query,
		"items", len(page.Records),
		"total", page.TotalItems,
		"duration", time.Since(start))

	if c.cache != nil {
		c.cache.Add(key, page)
	}
	return page, nil
}

// SearchByExtension searches for files with any of the given extensions,
// optionally narrowed by extra query terms.
func (c *Client) SearchByExtension(ctx context.Context, extensions []string, extra string, opts SearchOptions) (*ipc.ReplyPage, error) {
	if len(extensions) == 0 {
		return nil, errors.ValidationError("at least one extension is required", nil)
	}
	cleaned := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		cleaned = append(cleaned, ext)
	}
	if len(cleaned) == 0 {
		return nil, errors.ValidationError("extensions are empty after normalization", nil)
	}

	query := "ext:" + strings.Join(cleaned, ";")
	if extra != "" {
		query += " " + extra
	}
	return c.Search(ctx, query, opts)
}

// SearchInFolder scopes a query to a folder subtree.
func (c *Client) SearchInFolder(ctx context.Context, folder, query string, opts SearchOptions) (*ipc.ReplyPage, error) {
	if strings.TrimSpace(folder) == "" {
		return nil, errors.ValidationError("folder is required", nil)
	}
	scoped := fmt.Sprintf("path:%q", strings.TrimRight(folder, `\`))
	if query != "" {
		scoped += " " + query
	}
	return c.Search(ctx, scoped, opts)
}

// SearchFiles restricts results to files.
func (c *Client) SearchFiles(ctx context.Context, query string, opts SearchOptions) (*ipc.ReplyPage, error) {
	return c.Search(ctx, "file: "+query, opts)
}

// SearchFolders restricts results to folders.
func (c *Client) SearchFolders(ctx context.Context, query string, opts SearchOptions) (*ipc.ReplyPage, error) {
	return c.Search(ctx, "folder: "+query, opts)
}

// Version reads the engine's four-part version.
func (c *Client) Version(ctx context.Context) (string, error) {
	parts := make([]uint64, 0, 4)
	for _, code := range []ipc.StatusCode{
		ipc.GetMajorVersion, ipc.GetMinorVersion, ipc.GetRevision, ipc.GetBuildNumber,
	} {
		v, err := c.searcher.SendWord(ctx, code)
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return fmt.Sprintf("%d.%d.%d.%d", parts[0], parts[1], parts[2], parts[3]), nil
}

// Status gathers a full engine status snapshot.
func (c *Client) Status(ctx context.Context) (*EngineStatus, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}

	machine, err := c.searcher.SendWord(ctx, ipc.GetTargetMachine)
	if err != nil {
		return nil, err
	}
	loaded, err := c.searcher.SendWord(ctx, ipc.IsDBLoaded)
	if err != nil {
		return nil, err
	}
	busy, err := c.searcher.SendWord(ctx, ipc.IsDBBusy)
	if err != nil {
		return nil, err
	}
	admin, err := c.searcher.SendWord(ctx, ipc.IsAdmin)
	if err != nil {
		return nil, err
	}

	return &EngineStatus{
		Version:       version,
		TargetMachine: ipc.TargetMachineString(machine),
		DBLoaded:      loaded != 0,
		DBBusy:        busy != 0,
		IsAdmin:       admin != 0,
	}, nil
}

// RebuildDB asks the engine to rebuild its index.
func (c *Client) RebuildDB(ctx context.Context) error {
	_, err := c.searcher.SendWord(ctx, ipc.RebuildDB)
	return err
}

// SaveDB asks the engine to flush its index to disk.
func (c *Client) SaveDB(ctx context.Context) error {
	_, err := c.searcher.SendWord(ctx, ipc.SaveDB)
	return err
}

// Metrics returns a snapshot of the search metrics collected so far.
func (c *Client) Metrics() *telemetry.Snapshot {
	return c.metrics.Snapshot()
}

// Close releases the underlying dispatcher.
func (c *Client) Close() error {
	return c.searcher.Close()
}

// cacheKey hashes the full request shape so two requests share an entry only
// when every field matches.
func cacheKey(req *ipc.SearchRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Query))
	var nums [20]byte
	binary.LittleEndian.PutUint32(nums[0:], uint32(req.Flags))
	binary.LittleEndian.PutUint32(nums[4:], req.Offset)
	binary.LittleEndian.PutUint32(nums[8:], req.MaxResults)
	binary.LittleEndian.PutUint32(nums[12:], uint32(req.Sort))
	binary.LittleEndian.PutUint32(nums[16:], uint32(req.Request))
	h.Write(nums[:])
	return hex.EncodeToString(h.Sum(nil))
}
