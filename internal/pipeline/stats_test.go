package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/lessongest/internal/merge"
)

func TestConversionStatsLatencyPercentiles(t *testing.T) {
	stats := NewConversionStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, false, nil)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 || snap.P50Ms != 300 {
		t.Fatalf("expected avg=p50=300, got avg=%f p50=%f", snap.AvgMs, snap.P50Ms)
	}
	if snap.P95Ms != 480 || snap.P99Ms != 496 {
		t.Fatalf("expected p95=480 p99=496, got p95=%f p99=%f", snap.P95Ms, snap.P99Ms)
	}
}

func TestConversionStatsMergeTotals(t *testing.T) {
	stats := NewConversionStats(time.Hour)
	stats.Record(50*time.Millisecond, false, &merge.Stats{
		Matched:  map[merge.Strategy]int{merge.StrategyID: 2, merge.StrategyPositional: 1},
		Appended: 1,
	})
	stats.Record(70*time.Millisecond, false, &merge.Stats{
		Matched: map[merge.Strategy]int{merge.StrategyPositional: 3},
		Skewed:  true,
	})
	stats.Record(10*time.Millisecond, false, nil)

	snap := stats.Snapshot()
	if snap.Count != 3 || snap.Skewed != 1 || snap.Appended != 1 {
		t.Fatalf("unexpected totals %+v", snap)
	}
	if snap.Matched[merge.StrategyID] != 2 || snap.Matched[merge.StrategyPositional] != 4 {
		t.Errorf("unexpected matched totals %v", snap.Matched)
	}
}

func TestConversionStatsFailuresSkipLatency(t *testing.T) {
	stats := NewConversionStats(time.Hour)
	stats.Record(900*time.Millisecond, true, nil)
	stats.Record(100*time.Millisecond, false, nil)

	snap := stats.Snapshot()
	if snap.Count != 2 || snap.Failed != 1 {
		t.Fatalf("expected two conversions with one failure, got %+v", snap)
	}
	if snap.MaxMs != 100 {
		t.Errorf("expected failed run excluded from latency, got max=%d", snap.MaxMs)
	}
}

func TestConversionStatsPrunesExpiredEntries(t *testing.T) {
	stats := NewConversionStats(10 * time.Millisecond)
	stats.Record(100*time.Millisecond, false, nil)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200*time.Millisecond, false, nil)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected one 200ms entry, got %+v", snap)
	}
}

func TestConversionStatsClampsNegativeDuration(t *testing.T) {
	stats := NewConversionStats(time.Hour)
	stats.Record(-10*time.Millisecond, false, nil)
	if snap := stats.Snapshot(); snap.Count != 1 || snap.MinMs != 0 {
		t.Fatalf("expected one clamped entry, got %+v", snap)
	}
}
