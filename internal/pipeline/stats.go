package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/lessongest/internal/merge"
)

// conversion is one job that reached a terminal status.
type conversion struct {
	finishedAt time.Time
	durationMs int64
	failed     bool
	merge      *merge.Stats
}

// StatsSnapshot describes recent conversions and the current pipeline load.
// Latency figures cover completed conversions only.
type StatsSnapshot struct {
	Count       int                    `json:"count"`
	Failed      int                    `json:"failed"`
	Skewed      int                    `json:"skewed"`
	Matched     map[merge.Strategy]int `json:"matched"`
	Appended    int                    `json:"appended"`
	MinMs       int64                  `json:"min_ms"`
	MaxMs       int64                  `json:"max_ms"`
	AvgMs       float64                `json:"avg_ms"`
	P50Ms       float64                `json:"p50_ms"`
	P95Ms       float64                `json:"p95_ms"`
	P99Ms       float64                `json:"p99_ms"`
	QueueDepth  int                    `json:"queue_depth"`
	CachedTrees int                    `json:"cached_trees"`
}

// ConversionStats keeps finished conversions for a rolling window.
type ConversionStats struct {
	mu      sync.Mutex
	entries []conversion
	maxAge  time.Duration
}

func NewConversionStats(maxAge time.Duration) *ConversionStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &ConversionStats{maxAge: maxAge}
}

// Record adds a finished conversion. ms is nil for single-document jobs and
// for jobs that failed before merging.
func (s *ConversionStats) Record(d time.Duration, failed bool, ms *merge.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries stay ordered by finish time for pruning.
	now := time.Now()
	s.pruneLocked(now)
	s.entries = append(s.entries, conversion{
		finishedAt: now,
		durationMs: max(d.Milliseconds(), 0),
		failed:     failed,
		merge:      ms,
	})
}

func (s *ConversionStats) Snapshot() StatsSnapshot {
	now := time.Now()
	snap := StatsSnapshot{Matched: map[merge.Strategy]int{}}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)

	var latencies []int64
	var sum int64
	for _, c := range s.entries {
		snap.Count++
		if c.merge != nil {
			for strategy, n := range c.merge.Matched {
				snap.Matched[strategy] += n
			}
			snap.Appended += c.merge.Appended
			if c.merge.Skewed {
				snap.Skewed++
			}
		}
		if c.failed {
			snap.Failed++
			continue
		}
		latencies = append(latencies, c.durationMs)
		sum += c.durationMs
	}
	if len(latencies) == 0 {
		return snap
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.AvgMs = float64(sum) / float64(len(latencies))
	snap.P50Ms = percentile(latencies, 50)
	snap.P95Ms = percentile(latencies, 95)
	snap.P99Ms = percentile(latencies, 99)
	return snap
}

func (s *ConversionStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	i := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].finishedAt.Before(cutoff)
	})
	s.entries = append(s.entries[:0], s.entries[i:]...)
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[n-1])
	}
	index := float64(n-1) * pct / 100
	lower := int(index)
	if lower+1 >= n {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
