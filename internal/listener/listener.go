// Package listener implements the reconnecting TCP and UDP decoder
// listeners. Its reconnect/state-tracking shape is grounded on
// internal/mqttclient.Client's atomic-bool-connected + auto-reconnect
// pattern; event delivery replaces that package's single callback with
// typed channels, since nothing downstream needs the emitter-style API
// an MQTT client needs to offer subscribers.
package listener

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Stats mirrors the counters every listener tracks for its decoder feed.
type Stats struct {
	BytesRead    int64
	LinesParsed  int64
	ParseErrors  int64
	Reconnects   int64
}

// Event is delivered on a Listener's Events channel.
type Event struct {
	Kind    EventKind
	Decoder string
	Raw     []byte // populated for Kind == EventMessage
	Err     error  // populated for Kind == EventError
}

type EventKind int

const (
	EventMessage EventKind = iota
	EventConnected
	EventDisconnected
	EventError
)

// Listener is the shared contract TCP and UDP variants both satisfy.
type Listener interface {
	Start() error
	Stop()
	Connected() bool
	GetStats() Stats
	Events() <-chan Event
}

type baseListener struct {
	decoder   string
	log       zerolog.Logger
	connected atomic.Bool
	events    chan Event

	bytesRead   atomic.Int64
	linesParsed atomic.Int64
	parseErrors atomic.Int64
	reconnects  atomic.Int64
}

func newBase(decoder string, log zerolog.Logger) baseListener {
	return baseListener{
		decoder: decoder,
		log:     log.With().Str("decoder", decoder).Logger(),
		events:  make(chan Event, 256),
	}
}

func (b *baseListener) Connected() bool { return b.connected.Load() }

func (b *baseListener) Events() <-chan Event { return b.events }

func (b *baseListener) GetStats() Stats {
	return Stats{
		BytesRead:   b.bytesRead.Load(),
		LinesParsed: b.linesParsed.Load(),
		ParseErrors: b.parseErrors.Load(),
		Reconnects:  b.reconnects.Load(),
	}
}

func (b *baseListener) emit(ev Event) {
	ev.Decoder = b.decoder
	select {
	case b.events <- ev:
	default:
		b.log.Warn().Msg("listener event channel full, dropping event")
	}
}

func (b *baseListener) setConnected(v bool) {
	wasConnected := b.connected.Swap(v)
	if v && !wasConnected {
		b.emit(Event{Kind: EventConnected})
	} else if !v && wasConnected {
		b.emit(Event{Kind: EventDisconnected})
	}
}
