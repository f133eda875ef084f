// Package store is the embedded SQLite persistence layer: schema,
// migrations, the message write path, full-text search, histogram and
// counter tables, WAL checkpointing, and the station-id registry.
// Connection setup and pragma tuning are grounded on
// ClusterCockpit-cc-backend's pkg/archive/sqliteBackend.go; schema
// migrations are grounded on its internal/repository/migration.go
// golang-migrate+embedded-SQL approach.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// Store wraps the sqlite connection and every lookup/derived table the
// write and read paths maintain alongside the core messages table.
type Store struct {
	db   *sql.DB
	log  zerolog.Logger
	path string

	stationIDs   map[string]bool
	alertTerms   []string
	ignoreTerms  map[string]bool
}

// Path returns the sqlite file path this Store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Open opens (creating if absent) the sqlite database at path, applies
// the performance pragmas the teacher's archive backend uses, and
// returns a Store with an empty, unmigrated schema. Call Migrate before
// using the write or search paths.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Warn().Err(err).Str("pragma", p).Msg("sqlite pragma failed")
		}
	}

	return &Store{
		db:          db,
		log:         log.With().Str("component", "store").Logger(),
		path:        path,
		stationIDs:  make(map[string]bool),
		ignoreTerms: make(map[string]bool),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetAlertTerms configures the terms the write path evaluates against
// every persisted message. ignoreTerms are suppressed entirely: a match
// against an ignored term never produces an alert_matches row.
func (s *Store) SetAlertTerms(terms, ignoreTerms []string) {
	s.alertTerms = terms
	s.ignoreTerms = make(map[string]bool, len(ignoreTerms))
	for _, t := range ignoreTerms {
		s.ignoreTerms[normalizeTerm(t)] = true
	}
}

func normalizeTerm(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// KnownStationIDs returns every station_id the registry has observed so
// far, seeded from the DB at Migrate time and updated by each Insert.
func (s *Store) KnownStationIDs() []string {
	out := make([]string, 0, len(s.stationIDs))
	for id := range s.stationIDs {
		out = append(out, id)
	}
	return out
}

// seedStationIDs loads the distinct station_id values already present in
// the messages table into the in-memory registry. Called once after
// migration, mirroring the teacher's IdentityResolver warm-from-DB step.
func (s *Store) seedStationIDs() error {
	rows, err := s.db.Query(`SELECT DISTINCT station_id FROM messages WHERE station_id != ''`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		s.stationIDs[id] = true
	}
	return rows.Err()
}

// every canonical decoder type, in the fixed column order used by
// freqs_*/level_* table names and the time-series total_count sum.
var decoderKeys = func() []string {
	out := make([]string, 0, len(model.AllTypes))
	for _, t := range model.AllTypes {
		out = append(out, t.CounterKey())
	}
	return out
}()
