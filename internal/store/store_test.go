package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	done := make(chan MigrateResult, 1)
	s.Migrate(done)
	if res := <-done; res.Err != nil {
		t.Fatalf("Migrate: %v", res.Err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetMessageByUID(t *testing.T) {
	s := openTestStore(t)

	msg := model.Message{
		MessageType: model.TypeACARS,
		Timestamp:   1000,
		Tail:        "N12345",
		Flight:      "UAL123",
	}
	if err := s.Insert(msg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	counts, err := s.GetMessageCounts()
	if err != nil {
		t.Fatalf("GetMessageCounts: %v", err)
	}
	if counts.Total != 1 || counts.Good != 1 {
		t.Fatalf("counts = %+v, want total=1 good=1", counts)
	}
}

func TestSearchByFlightPrefix(t *testing.T) {
	s := openTestStore(t)
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 1, Flight: "UAL123", Tail: "N1"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 2, Flight: "DAL456", Tail: "N2"})

	result, err := s.Search(SearchParams{Flight: "UAL"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Messages) != 1 || result.Messages[0].Flight != "UAL123" {
		t.Fatalf("Search results = %+v, want one UAL123 match", result.Messages)
	}
	if result.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1", result.TotalCount)
	}
}

func TestSearchByStationIDSubstring(t *testing.T) {
	s := openTestStore(t)
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 1, StationID: "ground-station-1"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 2, StationID: "ground-station-2"})

	result, err := s.Search(SearchParams{StationID: "station-1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Messages) != 1 || result.Messages[0].StationID != "ground-station-1" {
		t.Fatalf("Search results = %+v, want one station-1 match", result.Messages)
	}
}

func TestSearchOffsetPagesThroughResultsInOrder(t *testing.T) {
	s := openTestStore(t)
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 1, Tail: "N1"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 2, Tail: "N2"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 3, Tail: "N3"})

	page1, err := s.Search(SearchParams{Limit: 1, Offset: 0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	page2, err := s.Search(SearchParams{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page1.Messages) != 1 || len(page2.Messages) != 1 {
		t.Fatalf("expected one row per page, got %d and %d", len(page1.Messages), len(page2.Messages))
	}
	if page1.Messages[0].Tail == page2.Messages[0].Tail {
		t.Fatalf("offset pages returned the same row twice: %+v / %+v", page1.Messages[0], page2.Messages[0])
	}
	if page1.TotalCount != 3 || page2.TotalCount != 3 {
		t.Fatalf("TotalCount should reflect the full match set regardless of paging, got %d and %d", page1.TotalCount, page2.TotalCount)
	}
}

func TestSearchTimeRangeFiltersRows(t *testing.T) {
	s := openTestStore(t)
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 100, Tail: "N1"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 200, Tail: "N2"})
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 300, Tail: "N3"})

	result, err := s.Search(SearchParams{TimeFrom: 150, TimeTo: 250})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Messages) != 1 || result.Messages[0].Tail != "N2" {
		t.Fatalf("Search results = %+v, want only N2 in [150,250)", result.Messages)
	}
	if result.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1", result.TotalCount)
	}
}

func TestInsertRoundTripsGeometryAndScheduleColumns(t *testing.T) {
	s := openTestStore(t)
	lat, lon, alt := 37.5, -122.3, 35000.0
	msg := model.Message{
		UID:         model.NewUID(),
		MessageType: model.TypeACARS,
		Timestamp:   1,
		Tail:        "N999",
		ETA:         "2359",
		GateOut:     "A1",
		GateIn:      "B2",
		WheelsOff:   "0100",
		WheelsIn:    "0200",
		Lat:         &lat,
		Lon:         &lon,
		Alt:         &alt,
	}
	if err := s.Insert(msg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := s.GetMessageByUID(msg.UID)
	if err != nil {
		t.Fatalf("GetMessageByUID: %v", err)
	}
	if !ok {
		t.Fatal("GetMessageByUID: not found")
	}
	if got.ETA != "2359" || got.GateOut != "A1" || got.GateIn != "B2" || got.WheelsOff != "0100" || got.WheelsIn != "0200" {
		t.Fatalf("schedule fields did not round-trip: %+v", got)
	}
	if got.Lat == nil || got.Lon == nil || got.Alt == nil || *got.Lat != lat || *got.Lon != lon || *got.Alt != alt {
		t.Fatalf("geometry fields did not round-trip: %+v", got)
	}
}

func TestGetAllSignalLevelsAlwaysHasFiveKeys(t *testing.T) {
	s := openTestStore(t)
	levels, err := s.GetAllSignalLevels()
	if err != nil {
		t.Fatalf("GetAllSignalLevels: %v", err)
	}
	for _, typ := range model.AllTypes {
		if _, ok := levels[typ.CounterKey()]; !ok {
			t.Errorf("missing key %q in GetAllSignalLevels result", typ.CounterKey())
		}
	}
}

func TestTwoErroredMessagesCountTwoErrorRows(t *testing.T) {
	s := openTestStore(t)
	s.Insert(model.Message{MessageType: model.TypeACARS, Timestamp: 1, Error: 2})
	s.Insert(model.Message{MessageType: model.TypeVDLM2, Timestamp: 2, Error: 1})

	counts, err := s.GetMessageCounts()
	if err != nil {
		t.Fatalf("GetMessageCounts: %v", err)
	}
	if counts.Errors != 2 {
		t.Fatalf("counts.Errors (rows with error>0) = %d, want 2", counts.Errors)
	}
}

func TestCheckpointIsIdempotentAtRest(t *testing.T) {
	s := openTestStore(t)
	first, err := s.Checkpoint(CheckpointTruncate)
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	second, err := s.Checkpoint(CheckpointTruncate)
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if second.FramesRemaining != 0 || first.FramesRemaining < 0 {
		t.Fatalf("checkpoints at rest should leave no frames remaining, got first=%+v second=%+v", first, second)
	}
}

func TestSearchRejectsFTSSpecialCharacters(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Search(SearchParams{Flight: `evil"injection`}); err == nil {
		t.Fatal("expected error for FTS special characters in search term")
	}
}
