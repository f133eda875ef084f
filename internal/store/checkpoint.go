package store

import "fmt"

// CheckpointMode selects a sqlite wal_checkpoint mode.
type CheckpointMode string

const (
	CheckpointPassive CheckpointMode = "PASSIVE"
	CheckpointFull    CheckpointMode = "FULL"
	CheckpointRestart CheckpointMode = "RESTART"
	CheckpointTruncate CheckpointMode = "TRUNCATE"
)

// CheckpointResult reports how much of the WAL was flushed.
type CheckpointResult struct {
	FramesCheckpointed int
	FramesRemaining    int // log - checkpointed
}

// Checkpoint runs PRAGMA wal_checkpoint(mode) and reports the frame
// counts sqlite returns.
func (s *Store) Checkpoint(mode CheckpointMode) (CheckpointResult, error) {
	row := s.db.QueryRow(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode))
	var busy, log, checkpointed int
	if err := row.Scan(&busy, &log, &checkpointed); err != nil {
		return CheckpointResult{}, err
	}
	return CheckpointResult{
		FramesCheckpointed: checkpointed,
		FramesRemaining:    log - checkpointed,
	}, nil
}

// StartupCheckpoint runs a TRUNCATE checkpoint to flush any WAL left
// over from an unclean shutdown before the store starts serving reads.
func (s *Store) StartupCheckpoint() (CheckpointResult, error) {
	return s.Checkpoint(CheckpointTruncate)
}
