package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{3 * time.Millisecond, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{200 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), "latency %s", tt.d)
	}
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.add(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.values())
}

func TestRing_PartiallyFilled(t *testing.T) {
	r := newRing[string](4)
	r.add("a")
	r.add("b")
	assert.Equal(t, []string{"a", "b"}, r.values())
}

func TestQueryMetrics_Record(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "*.pdf", Latency: 5 * time.Millisecond, ResultCount: 10, TotalItems: 42})
	m.Record(QueryEvent{Query: "nothing-matches", Latency: 20 * time.Millisecond, TotalItems: 0})
	m.Record(QueryEvent{Query: "*.pdf", Cached: true, TotalItems: 42})
	m.Record(QueryEvent{Query: "broken", Failed: true})

	snap := m.Snapshot()
	assert.Equal(t, int64(4), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.FailedQueries)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"nothing-matches"}, snap.ZeroResultQueries)

	// The cached repeat of *.pdf counts as an exact repeat.
	assert.Equal(t, int64(1), snap.ExactRepeatCount)

	// Cache hits and failed calls do not contribute to the latency
	// histogram; only the two engine round trips do.
	assert.Equal(t, int64(1), snap.Latencies[BucketP10])
	assert.Equal(t, int64(1), snap.Latencies[BucketP50])
	var totalLatency int64
	for _, n := range snap.Latencies {
		totalLatency += n
	}
	assert.Equal(t, int64(2), totalLatency)
}

func TestQueryMetrics_FailedCallsExcludedFromLatency(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Query: "broken", Failed: true})

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.FailedQueries)
	assert.Empty(t, snap.Latencies)
}

func TestQueryMetrics_RepeatDetectionNormalizes(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Query: "Report.docx", TotalItems: 1})
	m.Record(QueryEvent{Query: "  report.docx ", TotalItems: 1})

	assert.Equal(t, int64(1), m.Snapshot().ExactRepeatCount)
}

func TestQueryMetrics_ZeroResultPercentage(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Query: "a", TotalItems: 1})
	m.Record(QueryEvent{Query: "b", TotalItems: 0})
	m.Record(QueryEvent{Query: "c", Failed: true})

	snap := m.Snapshot()
	assert.InDelta(t, 50.0, snap.ZeroResultPercentage(), 0.001)
}

func TestQueryMetrics_ZeroResultPercentage_NoQueries(t *testing.T) {
	m := NewQueryMetrics()
	assert.Zero(t, m.Snapshot().ZeroResultPercentage())
}

func TestQueryMetrics_ZeroResultRingBounded(t *testing.T) {
	m := NewQueryMetricsWithConfig(Config{ZeroResultsCapacity: 2})
	for i := 0; i < 5; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("q%d", i), TotalItems: 0})
	}

	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.ZeroResultCount)
	assert.Equal(t, []string{"q3", "q4"}, snap.ZeroResultQueries)
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := NewQueryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: fmt.Sprintf("worker-%d-%d", n, j), TotalItems: 1})
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(800), m.Snapshot().TotalQueries)
}

func TestSnapshot_IsCopy(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Query: "a", Latency: time.Millisecond, TotalItems: 1})

	snap := m.Snapshot()
	snap.Latencies[BucketP10] = 99

	assert.Equal(t, int64(1), m.Snapshot().Latencies[BucketP10])
}
