package store

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

//go:embed migrations/sqlite3/*.sql
var migrationFiles embed.FS

// MigrateResult is delivered on the channel Migrate's caller passes in
// once the migration goroutine finishes.
type MigrateResult struct {
	Err error
}

// Migrate runs every pending schema migration in a dedicated goroutine
// and reports completion on done; the caller decides when to block on
// the result (main waits for it right after starting it).
func (s *Store) Migrate(done chan<- MigrateResult) {
	go func() {
		done <- MigrateResult{Err: s.migrateSync()}
	}()
}

func (s *Store) migrateSync() error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite3 migrate driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("new migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if err := s.backfillUIDs(); err != nil {
		return fmt.Errorf("backfill uids: %w", err)
	}

	return s.seedStationIDs()
}

// backfillUIDs assigns a generated uid to any row the legacy schema
// left without one. New rows always get a uid at insert time; this only
// matters for rows carried forward across the 0002 restructure.
func (s *Store) backfillUIDs() error {
	rows, err := s.db.Query(`SELECT id FROM messages WHERE uid IS NULL OR uid = ''`)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.setUID(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) setUID(id int64) error {
	_, err := s.db.Exec(`UPDATE messages SET uid = ? WHERE id = ?`, model.NewUID(), id)
	return err
}
