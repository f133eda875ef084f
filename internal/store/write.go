package store

import (
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// Insert persists msg and updates every secondary table (frequency and
// signal-level histograms, cumulative counters, alert matches, the
// station-id registry). Only the primary row insert can fail the whole
// call; every secondary-table step is best-effort and logs rather than
// aborting, since losing a histogram bucket must never lose the message
// itself.
func (s *Store) Insert(msg model.Message) error {
	if msg.UID == "" {
		msg.UID = model.NewUID()
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (
			uid, aircraft_id, timestamp, message_type, station_id,
			toaddr, fromaddr, icao, tail, flight, depa, dsta,
			eta, gtout, gtin, wloff, wlin, lat, lon, alt,
			freq, level, label, block_id, msgno, ack, mode,
			is_response, is_onground, error, msg_text, libacars
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		msg.UID, msg.ICAO, msg.Timestamp, string(msg.MessageType), msg.StationID,
		msg.ToAddr, msg.FromAddr, msg.ICAO, msg.Tail, msg.Flight, msg.Depa, msg.Dsta,
		msg.ETA, msg.GateOut, msg.GateIn, msg.WheelsOff, msg.WheelsIn, msg.Lat, msg.Lon, msg.Alt,
		msg.Freq, msg.Level, msg.Label, msg.BlockID, msg.Msgno, msg.Ack, msg.Mode,
		msg.IsResponse, msg.IsOnGround, msg.Error, msg.MsgText, msg.Libacars,
	)
	if err != nil {
		return err
	}

	// key is one of the fixed CounterKey() values, never caller input, so
	// building the table name by concatenation here is safe.
	key := msg.MessageType.CounterKey()
	if key != "" && msg.Freq != "" {
		if _, err := s.db.Exec(
			`INSERT INTO freqs_`+key+` (freq, count) VALUES (?, 1)
			 ON CONFLICT(freq) DO UPDATE SET count = count + 1`, msg.Freq,
		); err != nil {
			s.log.Warn().Err(err).Str("decoder", key).Msg("freq histogram upsert failed")
		}
	}
	if key != "" && msg.Level != nil {
		if _, err := s.db.Exec(
			`INSERT INTO level_`+key+` (level, count) VALUES (?, 1)
			 ON CONFLICT(level) DO UPDATE SET count = count + 1`, *msg.Level,
		); err != nil {
			s.log.Warn().Err(err).Str("decoder", key).Msg("level histogram upsert failed")
		}
	}

	good := 1
	errs := 0
	if msg.Error > 0 {
		good = 0
		errs = 1
	}
	if _, err := s.db.Exec(
		`UPDATE messages_count SET total = total + 1, good = good + ?, errors = errors + ? WHERE id = 1`,
		good, errs,
	); err != nil {
		s.log.Warn().Err(err).Msg("cumulative counter update failed")
	}

	if err := s.evaluateAlerts(msg); err != nil {
		s.log.Warn().Err(err).Msg("alert evaluation failed")
	}

	if msg.StationID != "" && !s.stationIDs[msg.StationID] {
		s.stationIDs[msg.StationID] = true
	}

	return nil
}

// IncrementDropped records a message the queue dropped on overflow
// before it ever reached the write path.
func (s *Store) IncrementDropped() error {
	_, err := s.db.Exec(`UPDATE messages_count_dropped SET total = total + 1 WHERE id = 1`)
	return err
}

// alertFields lists the (type_of_match, value) pairs a term is checked
// against, in the order alert_matches rows are produced for a hit.
func alertFields(msg model.Message) []struct{ typ, value string } {
	return []struct{ typ, value string }{
		{"text", msg.MsgText},
		{"icao", msg.ICAO},
		{"tail", msg.Tail},
		{"flight", msg.Flight},
	}
}

// evaluateAlerts matches configured alert terms, case-insensitively,
// against text/icao/tail/flight independently, inserting one alert_matches
// row per (term, field) hit. A term on the ignore list is suppressed
// entirely: it never produces a row, even if it also appears in the
// alert term list.
func (s *Store) evaluateAlerts(msg model.Message) error {
	if len(s.alertTerms) == 0 {
		return nil
	}

	for _, term := range s.alertTerms {
		norm := normalizeTerm(term)
		if s.ignoreTerms[norm] {
			continue
		}
		needle := strings.ToLower(term)
		for _, field := range alertFields(msg) {
			if field.value == "" || !strings.Contains(strings.ToLower(field.value), needle) {
				continue
			}
			if _, err := s.db.Exec(
				`INSERT INTO alert_matches (uid, term, time, type_of_match) VALUES (?, ?, ?, ?)`,
				msg.UID, term, msg.Timestamp, field.typ,
			); err != nil {
				return err
			}
		}
	}
	return nil
}
