// Package telemetry collects in-process search metrics. All data stays
// local and in memory; nothing is ever reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a histogram bucket for search round-trip time.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent describes one completed search call.
type QueryEvent struct {
	Query       string
	Latency     time.Duration
	ResultCount int
	TotalItems  uint32
	Cached      bool
	Failed      bool
}

// IsZeroResult reports whether the search succeeded but matched nothing.
func (e QueryEvent) IsZeroResult() bool {
	return !e.Failed && e.TotalItems == 0
}

// ring is a fixed-capacity circular buffer. Oldest entries are overwritten
// once capacity is reached.
type ring[T any] struct {
	items []T
	head  int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) add(item T) {
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// values returns entries oldest-first.
func (r *ring[T]) values() []T {
	out := make([]T, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.items)
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

// Snapshot is a point-in-time view of collected metrics.
type Snapshot struct {
	TotalQueries      int64                   `json:"total_queries"`
	FailedQueries     int64                   `json:"failed_queries"`
	CacheHits         int64                   `json:"cache_hits"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	ExactRepeatCount  int64                   `json:"exact_repeat_count"`
	Latencies         map[LatencyBucket]int64 `json:"latencies"`
	ZeroResultQueries []string                `json:"zero_result_queries,omitempty"`
	Uptime            time.Duration           `json:"uptime"`
}

// ZeroResultPercentage returns the share of successful queries that matched
// nothing, in percent.
func (s *Snapshot) ZeroResultPercentage() float64 {
	succeeded := s.TotalQueries - s.FailedQueries
	if succeeded <= 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(succeeded) * 100
}

// Config bounds the collector's memory use.
type Config struct {
	ZeroResultsCapacity   int // recent zero-result queries kept (default 100)
	RecentQueriesCapacity int // query hashes tracked for repeat detection (default 500)
}

// QueryMetrics accumulates search telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	totalQueries     int64
	failedQueries    int64
	cacheHits        int64
	zeroResultCount  int64
	exactRepeatCount int64
	latencies        map[LatencyBucket]int64
	zeroResults      *ring[string]
	recentQueries    *lru.Cache[string, struct{}]
	startTime        time.Time
}

// NewQueryMetrics creates a collector with default capacities.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(Config{})
}

// NewQueryMetricsWithConfig creates a collector with explicit capacities.
func NewQueryMetricsWithConfig(cfg Config) *QueryMetrics {
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		latencies:     make(map[LatencyBucket]int64),
		zeroResults:   newRing[string](cfg.ZeroResultsCapacity),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record captures one search call. Non-blocking.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	if event.Failed {
		m.failedQueries++
	}
	if event.Cached {
		m.cacheHits++
	}

	if event.IsZeroResult() {
		m.zeroResults.add(event.Query)
		m.zeroResultCount++
	}

	// The histogram tracks engine round-trip time, so cache hits and
	// failed calls stay out of it.
	if !event.Cached && !event.Failed {
		m.latencies[LatencyToBucket(event.Latency)]++
	}

	hash := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(hash); seen {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(hash, struct{}{})
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		TotalQueries:      m.totalQueries,
		FailedQueries:     m.failedQueries,
		CacheHits:         m.cacheHits,
		ZeroResultCount:   m.zeroResultCount,
		ExactRepeatCount:  m.exactRepeatCount,
		Latencies:         latencies,
		ZeroResultQueries: m.zeroResults.values(),
		Uptime:            time.Since(m.startTime),
	}
}

// hashQuery normalizes and hashes a query for repeat detection. Only the
// hash is retained, never the query text.
func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
