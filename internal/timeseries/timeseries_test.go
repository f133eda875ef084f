package timeseries

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/model"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	done := make(chan store.MigrateResult, 1)
	s.Migrate(done)
	if res := <-done; res.Err != nil {
		t.Fatalf("Migrate: %v", res.Err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriterWritesAndResetsMinuteOnly(t *testing.T) {
	s := openTestStore(t)
	q := queue.New(10)
	q.Push(model.Message{MessageType: model.TypeACARS})

	w := NewWriter(q, s, zerolog.New(io.Discard))
	w.writeOnce()

	stats := q.GetStats()
	if stats.LastMinute["acars"] != 0 {
		t.Errorf("LastMinute[acars] = %d, want 0 after write", stats.LastMinute["acars"])
	}
	if stats.Total["acars"] != 1 {
		t.Errorf("Total[acars] = %d, want 1 preserved after write", stats.Total["acars"])
	}

	rows, err := s.QueryTimeSeriesRange("1min", 0, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("QueryTimeSeriesRange: %v", err)
	}
	if len(rows) != 1 || rows[0].ACARS != 1 {
		t.Fatalf("rows = %+v, want one row with ACARS=1", rows)
	}
}

func TestWriterTracksErrorCountSeparatelyFromTotal(t *testing.T) {
	s := openTestStore(t)
	q := queue.New(10)
	q.Push(model.Message{MessageType: model.TypeACARS, Error: 2})
	q.Push(model.Message{MessageType: model.TypeVDLM2})

	w := NewWriter(q, s, zerolog.New(io.Discard))
	w.writeOnce()

	rows, err := s.QueryTimeSeriesRange("1min", 0, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("QueryTimeSeriesRange: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v, want one row", rows)
	}
	if rows[0].ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", rows[0].ErrorCount)
	}
	if rows[0].TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2 (error_count is not added on top of total)", rows[0].TotalCount)
	}
}

func TestCacheRunPeriodAlignsToWallClockBoundary(t *testing.T) {
	s := openTestStore(t)
	c := NewCache(s, zerolog.New(io.Discard))
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}

	interval := refreshInterval[Period1Hour]
	now := time.Now()
	delay := time.Until(now.Truncate(interval).Add(interval))
	if delay <= 0 || delay > interval {
		t.Fatalf("delay = %v, want in (0, %v] for wall-clock-aligned first fire", delay, interval)
	}
}

func TestCacheSameReferenceUntilRefresh(t *testing.T) {
	s := openTestStore(t)
	c := NewCache(s, zerolog.New(io.Discard))
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}

	a := c.Get(Period1Hour)
	b := c.Get(Period1Hour)
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("expected a zero-filled, non-empty 1hr snapshot after Init")
	}
	if &a[0] != &b[0] {
		t.Fatal("repeated Get calls before any refresh should return the same snapshot")
	}
}

func TestCacheZeroFillsEveryBucket(t *testing.T) {
	s := openTestStore(t)
	c := NewCache(s, zerolog.New(io.Discard))
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	points := c.Get(Period1Hour)
	if len(points) < 59 || len(points) > 61 {
		t.Fatalf("len(points) = %d, want ~60 zero-filled 1-min buckets for a 1hr window", len(points))
	}
	for _, p := range points {
		if p.Total != 0 {
			t.Fatalf("expected all-zero buckets on an empty store, got %+v", p)
		}
	}
}
