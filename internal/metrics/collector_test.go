package metrics

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
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

func collectMetric(t *testing.T, c *Collector, name string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if strings.Contains(m.Desc().String(), name) {
			return d
		}
	}
	return nil
}

func TestCollectReportsMessageCounts(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(model.Message{MessageType: model.TypeACARS, Flight: "UAL123"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	c := NewCollector(s, nil, nil)
	m := collectMetric(t, c, "messages_total")
	if m == nil {
		t.Fatal("expected a messages_total metric")
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("messages_total = %v, want 1", m.GetCounter().GetValue())
	}
}

func TestCollectHandlesNilDependencies(t *testing.T) {
	c := NewCollector(nil, nil, nil)
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	count := 0
	for range ch {
		count++
	}
	if count != 1 {
		t.Fatalf("expected only the info metric with all deps nil, got %d metrics", count)
	}
}

func TestCollectReportsQueueLength(t *testing.T) {
	q := queue.New(10)
	q.Push(model.Message{MessageType: model.TypeACARS})
	q.Push(model.Message{MessageType: model.TypeVDLM2})

	c := NewCollector(nil, q, nil)
	m := collectMetric(t, c, "queue_length")
	if m == nil {
		t.Fatal("expected a queue_length metric")
	}
	if m.GetGauge().GetValue() != 2 {
		t.Errorf("queue_length = %v, want 2", m.GetGauge().GetValue())
	}
}
