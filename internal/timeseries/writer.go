// Package timeseries implements the minute writer and the multi-period
// cache that backs the time-series push events and the /data/stats.json
// summary. The wall-clock-aligned ticker pattern is grounded on the
// teacher's internal/ingest/pipeline.go background loops (statsLoop,
// maintenanceLoop), which align their first tick to a clean boundary
// before settling into a fixed interval.
package timeseries

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/model"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/store"
)

// Writer reads the queue's per-minute counters once a minute, inserts
// one timeseries_stats row, and resets the minute counters, all as a
// single logical operation so no other caller can ever observe the
// reset racing ahead of (or behind) the row it corresponds to.
type Writer struct {
	q     *queue.Queue
	st    *store.Store
	log   zerolog.Logger
	clock func() time.Time
}

func NewWriter(q *queue.Queue, st *store.Store, log zerolog.Logger) *Writer {
	return &Writer{q: q, st: st, log: log.With().Str("component", "timeseries-writer").Logger(), clock: time.Now}
}

// Run blocks until ctx is canceled, firing writeOnce on the first
// wall-clock minute boundary and every 60s after.
func (w *Writer) Run(ctx context.Context) {
	first := w.clock()
	delay := time.Until(first.Truncate(time.Minute).Add(time.Minute))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.writeOnce()
			timer.Reset(time.Minute)
		}
	}
}

func (w *Writer) writeOnce() {
	stats := w.q.GetStats()
	row := store.TimeSeriesRow{
		Timestamp:  w.clock().Unix(),
		Resolution: "1min",
		ACARS:      stats.LastMinute[model.TypeACARS.CounterKey()],
		VDLM:       stats.LastMinute[model.TypeVDLM2.CounterKey()],
		HFDL:       stats.LastMinute[model.TypeHFDL.CounterKey()],
		IMSL:       stats.LastMinute[model.TypeIMSL.CounterKey()],
		IRDM:       stats.LastMinute[model.TypeIRDM.CounterKey()],
		ErrorCount: stats.ErrorsLastMinute,
	}
	row.TotalCount = row.ACARS + row.VDLM + row.HFDL + row.IMSL + row.IRDM

	if err := w.st.InsertTimeSeriesRow(row); err != nil {
		// The spec's resolved policy for a write failure here is to log
		// and lose the minute rather than retry or buffer: retrying risks
		// double-counting against whatever partial state the failed write
		// left behind.
		w.log.Error().Err(err).Msg("timeseries write failed, minute dropped")
		w.q.ResetMinuteStats()
		return
	}

	w.q.ResetMinuteStats()
}
