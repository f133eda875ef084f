// Package persist drains the bounded queue into the store and the push
// bus. Its ticker-driven drain loop is grounded on the teacher's
// internal/ingest.Batcher, which also accumulates items and flushes them
// on a timer; here the queue itself already owns the accumulation, so
// the loop only needs to drain and flush it.
package persist

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/model"
	"github.com/acarshub/acars-hub-engine/internal/push"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/store"
)

const defaultDrainInterval = 50 * time.Millisecond

// Persister writes every queued message to the store exactly once, in
// queue order, then fans it out on the push bus. When a message's
// station_id has never been seen before, it also fans out a station-id
// registry update.
type Persister struct {
	q        *queue.Queue
	st       *store.Store
	bus      *push.Bus
	log      zerolog.Logger
	interval time.Duration

	knownStations map[string]bool
}

func New(q *queue.Queue, st *store.Store, bus *push.Bus, log zerolog.Logger) *Persister {
	known := make(map[string]bool)
	for _, id := range st.KnownStationIDs() {
		known[id] = true
	}
	return &Persister{
		q:             q,
		st:            st,
		bus:           bus,
		log:           log.With().Str("component", "persist").Logger(),
		interval:      defaultDrainInterval,
		knownStations: known,
	}
}

// Run drains the queue on a fixed interval until ctx is canceled, then
// drains it once more to flush anything queued since the last tick.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case <-ticker.C:
			p.drain()
		}
	}
}

func (p *Persister) drain() {
	msgs := p.q.PopAll()
	if len(msgs) == 0 {
		return
	}

	newStation := false
	for _, msg := range msgs {
		if err := p.st.Insert(msg); err != nil {
			p.log.Error().Err(err).Str("uid", msg.UID).Msg("insert failed, message dropped")
			continue
		}
		p.bus.Emit(push.EventACARSMsg, msg)

		if msg.StationID != "" && !p.knownStations[msg.StationID] {
			p.knownStations[msg.StationID] = true
			newStation = true
		}
	}

	if newStation {
		p.bus.Emit(push.EventStationIDs, p.st.KnownStationIDs())
	}
}

// OnOverflow is wired as the queue's overflow callback: a dropped message
// still needs to be reflected in the dropped-message counter.
func OnOverflow(st *store.Store, log zerolog.Logger) queue.OverflowFunc {
	return func(dropped model.Message) {
		if err := st.IncrementDropped(); err != nil {
			log.Warn().Err(err).Str("uid", dropped.UID).Msg("failed to record dropped message")
		}
	}
}
