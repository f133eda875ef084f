package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// SearchParams filters Search results. Every non-empty field is combined
// with AND. Flight/tail/icao/depa/dsta/label/text use FTS5 prefix
// matching; station_id uses a plain LIKE substring match since it is not
// part of the FTS index. TimeFrom/TimeTo, when non-zero, bound the
// message timestamp to [TimeFrom, TimeTo).
type SearchParams struct {
	Flight    string
	Tail      string
	ICAO      string
	Depa      string
	Dsta      string
	Label     string
	Text      string
	StationID string
	Freq      string

	TimeFrom int64
	TimeTo   int64

	SortBy   string // "time" (default), "tail", "flight"
	SortDesc bool
	Limit    int
	Offset   int
}

// SearchResult is databaseSearch's return shape: the page of matching
// messages plus the total number of rows the filters match, ignoring
// limit/offset.
type SearchResult struct {
	Messages   []model.Message
	TotalCount int64
}

// ftsSpecialChars are the characters FTS5 MATCH query syntax treats
// specially; any user-supplied term containing one is rejected rather
// than escaped, since FTS5's escaping rules for embedded quotes are
// easy to get subtly wrong and a rejected search is safer than an
// injected one.
const ftsSpecialChars = `"*^:()-+`

func containsSpecialFTSChar(s string) bool {
	return strings.ContainsAny(s, ftsSpecialChars)
}

// Search runs databaseSearch: FTS prefix matching against the indexed
// columns, a LIKE fallback for station_id, an optional time range,
// sorted by the requested key (defaulting to time descending), and
// returns the matching page alongside the total match count.
func (s *Store) Search(p SearchParams) (SearchResult, error) {
	var ftsTerms []string
	addFTS := func(col, val string) error {
		if val == "" {
			return nil
		}
		if containsSpecialFTSChar(val) {
			return fmt.Errorf("search: %s contains unsupported characters", col)
		}
		ftsTerms = append(ftsTerms, fmt.Sprintf("%s:%s*", col, val))
		return nil
	}

	if err := addFTS("flight", p.Flight); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("tail", p.Tail); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("icao", p.ICAO); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("depa", p.Depa); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("dsta", p.Dsta); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("label", p.Label); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("freq", p.Freq); err != nil {
		return SearchResult{}, err
	}
	if err := addFTS("msg_text", p.Text); err != nil {
		return SearchResult{}, err
	}

	from := `messages m`
	var where []string
	var args []any

	if len(ftsTerms) > 0 {
		from += ` JOIN messages_fts f ON f.rowid = m.id`
		where = append(where, `messages_fts MATCH ?`)
		args = append(args, strings.Join(ftsTerms, " AND "))
	}
	if p.StationID != "" {
		where = append(where, `m.station_id LIKE ?`)
		args = append(args, "%"+p.StationID+"%")
	}
	if p.TimeFrom != 0 {
		where = append(where, `m.timestamp >= ?`)
		args = append(args, p.TimeFrom)
	}
	if p.TimeTo != 0 {
		where = append(where, `m.timestamp < ?`)
		args = append(args, p.TimeTo)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM `+from+whereClause, args...).Scan(&total); err != nil {
		return SearchResult{}, err
	}

	query := `SELECT m.id, m.uid, m.timestamp, m.message_type, m.station_id,
			m.toaddr, m.fromaddr, m.icao, m.tail, m.flight, m.depa, m.dsta,
			m.eta, m.gtout, m.gtin, m.wloff, m.wlin, m.lat, m.lon, m.alt,
			m.freq, m.level, m.label, m.block_id, m.msgno, m.ack, m.mode,
			m.is_response, m.is_onground, m.error, m.msg_text, m.libacars
		FROM ` + from + whereClause
	query += ` ORDER BY ` + sortColumn(p.SortBy)
	if p.SortDesc || p.SortBy == "" {
		query += ` DESC`
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	selArgs := append(append([]any{}, args...), limit, p.Offset)

	rows, err := s.db.Query(query, selArgs...)
	if err != nil {
		return SearchResult{}, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var id int64
		var msg model.Message
		var level, lat, lon, alt *float64
		if err := rows.Scan(
			&id, &msg.UID, &msg.Timestamp, &msg.MessageType, &msg.StationID,
			&msg.ToAddr, &msg.FromAddr, &msg.ICAO, &msg.Tail, &msg.Flight, &msg.Depa, &msg.Dsta,
			&msg.ETA, &msg.GateOut, &msg.GateIn, &msg.WheelsOff, &msg.WheelsIn, &lat, &lon, &alt,
			&msg.Freq, &level, &msg.Label, &msg.BlockID, &msg.Msgno, &msg.Ack, &msg.Mode,
			&msg.IsResponse, &msg.IsOnGround, &msg.Error, &msg.MsgText, &msg.Libacars,
		); err != nil {
			return SearchResult{}, err
		}
		msg.Level = level
		msg.Lat, msg.Lon, msg.Alt = lat, lon, alt
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Messages: out, TotalCount: total}, nil
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "tail":
		return "m.tail"
	case "flight":
		return "m.flight"
	default:
		return "m.timestamp"
	}
}

// GetMessageByUID returns the message with the given uid, or ok=false if
// none exists.
func (s *Store) GetMessageByUID(uid string) (model.Message, bool, error) {
	row := s.db.QueryRow(`SELECT uid, timestamp, message_type, station_id,
			toaddr, fromaddr, icao, tail, flight, depa, dsta,
			eta, gtout, gtin, wloff, wlin, lat, lon, alt,
			freq, level, label, block_id, msgno, ack, mode,
			is_response, is_onground, error, msg_text, libacars
		FROM messages WHERE uid = ?`, uid)

	var msg model.Message
	var level, lat, lon, alt *float64
	err := row.Scan(
		&msg.UID, &msg.Timestamp, &msg.MessageType, &msg.StationID,
		&msg.ToAddr, &msg.FromAddr, &msg.ICAO, &msg.Tail, &msg.Flight, &msg.Depa, &msg.Dsta,
		&msg.ETA, &msg.GateOut, &msg.GateIn, &msg.WheelsOff, &msg.WheelsIn, &lat, &lon, &alt,
		&msg.Freq, &level, &msg.Label, &msg.BlockID, &msg.Msgno, &msg.Ack, &msg.Mode,
		&msg.IsResponse, &msg.IsOnGround, &msg.Error, &msg.MsgText, &msg.Libacars,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Message{}, false, nil
		}
		return model.Message{}, false, err
	}
	msg.Level = level
	msg.Lat, msg.Lon, msg.Alt = lat, lon, alt
	return msg, true, nil
}
