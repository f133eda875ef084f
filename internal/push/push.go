// Package push fans enriched messages and periodic broadcasts out to
// connected clients. It owns no transport of its own: the core calls
// Bus.Emit(event, payload) and never knows or cares whether anything is
// listening. Grounded on tr-engine's internal/ingest/eventbus.go, trimmed
// down to the single ID-ordered ring buffer and id-less filter acarshub
// needs (no system/site/tgid dimensions to filter on).
package push

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Event names the fixed push vocabulary: one per live message and one
// per time-series cache period, plus the station registry update.
const (
	EventACARSMsg   = "acars_msg"
	EventStationIDs = "station_ids"
)

// Envelope is one published event, ready to be serialized over whatever
// transport a subscriber owns (SSE, websocket, etc).
type Envelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type subscriber struct {
	ch     chan Envelope
	events map[string]bool // nil/empty means "all events"
}

// Bus is a single-writer-many-reader event fan-out with a ring buffer
// for replaying missed events to a reconnecting subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64

	ringMu   sync.RWMutex
	ring     []Envelope
	ringSize int
	ringHead int
	ringLen  int

	clock func() time.Time
}

// New creates a bus with a ring buffer holding the last ringSize events.
func New(ringSize int) *Bus {
	if ringSize < 1 {
		ringSize = 1
	}
	return &Bus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]Envelope, ringSize),
		ringSize:    ringSize,
		clock:       time.Now,
	}
}

// Subscribe registers a new subscriber, optionally filtered to a set of
// event names (empty or nil matches every event). The returned cancel
// func must be called when the subscriber disconnects.
func (b *Bus) Subscribe(events ...string) (<-chan Envelope, func()) {
	filter := make(map[string]bool, len(events))
	for _, e := range events {
		filter[e] = true
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Envelope, 64)
	b.subscribers[id] = subscriber{ch: ch, events: filter}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Emit marshals payload and delivers it to every matching subscriber,
// dropping it for any subscriber whose channel is full rather than
// blocking the publisher. It is the only callback the core ever needs.
func (b *Bus) Emit(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	env := Envelope{
		ID:        xid.New().String(),
		Event:     event,
		Timestamp: b.clock().UTC().Format(time.RFC3339),
		Data:      data,
	}

	b.ringMu.Lock()
	b.ring[b.ringHead] = env
	b.ringHead = (b.ringHead + 1) % b.ringSize
	if b.ringLen < b.ringSize {
		b.ringLen++
	}
	b.ringMu.Unlock()

	b.mu.RLock()
	for _, sub := range b.subscribers {
		if len(sub.events) > 0 && !sub.events[event] {
			continue
		}
		select {
		case sub.ch <- env:
		default:
		}
	}
	b.mu.RUnlock()
}

// ReplaySince returns buffered events published after lastEventID,
// oldest first. An empty lastEventID replays the whole ring.
func (b *Bus) ReplaySince(lastEventID string) []Envelope {
	b.ringMu.RLock()
	defer b.ringMu.RUnlock()

	start := (b.ringHead - b.ringLen + b.ringSize) % b.ringSize
	found := lastEventID == ""
	var out []Envelope
	for i := 0; i < b.ringLen; i++ {
		idx := (start + i) % b.ringSize
		e := b.ring[idx]
		if !found {
			if e.ID == lastEventID {
				found = true
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// SubscriberCount reports how many subscribers are currently attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
