package store

import "github.com/acarshub/acars-hub-engine/internal/model"

// MessageCounts is the cumulative good/error/total count maintained on
// messages_count across the store's entire lifetime (not reset per
// minute; that is the queue's job).
type MessageCounts struct {
	Total  int64
	Good   int64
	Errors int64
}

func (s *Store) GetMessageCounts() (MessageCounts, error) {
	var c MessageCounts
	err := s.db.QueryRow(`SELECT total, good, errors FROM messages_count WHERE id = 1`).
		Scan(&c.Total, &c.Good, &c.Errors)
	return c, err
}

func (s *Store) GetDroppedCount() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT total FROM messages_count_dropped WHERE id = 1`).Scan(&total)
	return total, err
}

// SignalLevelBucket is one (level, count) pair from a decoder's level_*
// histogram table.
type SignalLevelBucket struct {
	Level float64
	Count int64
}

// GetAllSignalLevels returns the level histogram for every canonical
// decoder type. Every key in model.AllTypes is always present in the
// result, even with an empty slice, so callers never need a presence
// check before indexing by decoder.
func (s *Store) GetAllSignalLevels() (map[string][]SignalLevelBucket, error) {
	out := make(map[string][]SignalLevelBucket, len(model.AllTypes))
	for _, t := range model.AllTypes {
		key := t.CounterKey()
		buckets, err := s.queryLevelBuckets(key)
		if err != nil {
			return nil, err
		}
		out[key] = buckets
	}
	return out, nil
}

func (s *Store) queryLevelBuckets(key string) ([]SignalLevelBucket, error) {
	rows, err := s.db.Query(`SELECT level, count FROM level_` + key + ` ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SignalLevelBucket{}
	for rows.Next() {
		var b SignalLevelBucket
		if err := rows.Scan(&b.Level, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FrequencyBucket is one (freq, count) pair from a decoder's freqs_*
// histogram table.
type FrequencyBucket struct {
	Freq  string
	Count int64
}

// GetAllFrequencies returns the frequency histogram for every canonical
// decoder type, with the same always-present-keys guarantee as
// GetAllSignalLevels.
func (s *Store) GetAllFrequencies() (map[string][]FrequencyBucket, error) {
	out := make(map[string][]FrequencyBucket, len(model.AllTypes))
	for _, t := range model.AllTypes {
		key := t.CounterKey()
		rows, err := s.db.Query(`SELECT freq, count FROM freqs_` + key + ` ORDER BY freq`)
		if err != nil {
			return nil, err
		}
		buckets := []FrequencyBucket{}
		for rows.Next() {
			var b FrequencyBucket
			if err := rows.Scan(&b.Freq, &b.Count); err != nil {
				rows.Close()
				return nil, err
			}
			buckets = append(buckets, b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		out[key] = buckets
	}
	return out, nil
}

// GetAlertMatchCount returns the total number of rows ever written to
// alert_matches, i.e. how many (term, field) hits have been recorded
// across all persisted messages.
func (s *Store) GetAlertMatchCount() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM alert_matches`).Scan(&total)
	return total, err
}

// DeleteMessagesOlderThan removes every message (and, transitively via
// the FTS triggers, its index entry) with a timestamp before cutoff.
// Exposed for callers to invoke directly or wire into the scheduler;
// the core does not call this on its own schedule.
func (s *Store) DeleteMessagesOlderThan(cutoff int64) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM messages WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
