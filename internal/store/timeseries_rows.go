package store

// TimeSeriesRow is one row of the timeseries_stats table. ErrorCount is
// tracked separately from TotalCount: an errored message still counts
// toward its decoder and the total, but is also tallied here.
type TimeSeriesRow struct {
	Timestamp  int64
	Resolution string
	ACARS      int64
	VDLM       int64
	HFDL       int64
	IMSL       int64
	IRDM       int64
	TotalCount int64
	ErrorCount int64
}

// InsertTimeSeriesRow writes one row. The minute writer and the importer
// both write "1min"-resolution rows.
func (s *Store) InsertTimeSeriesRow(row TimeSeriesRow) error {
	_, err := s.db.Exec(`
		INSERT INTO timeseries_stats (timestamp, resolution, acars, vdlm, hfdl, imsl, irdm, total_count, error_count)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		row.Timestamp, row.Resolution, row.ACARS, row.VDLM, row.HFDL, row.IMSL, row.IRDM, row.TotalCount, row.ErrorCount,
	)
	return err
}

// QueryTimeSeriesRange returns every row at resolution within
// [from, to), ordered by timestamp ascending.
func (s *Store) QueryTimeSeriesRange(resolution string, from, to int64) ([]TimeSeriesRow, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, resolution, acars, vdlm, hfdl, imsl, irdm, total_count, error_count
		FROM timeseries_stats
		WHERE resolution = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`, resolution, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeSeriesRow
	for rows.Next() {
		var r TimeSeriesRow
		if err := rows.Scan(&r.Timestamp, &r.Resolution, &r.ACARS, &r.VDLM, &r.HFDL, &r.IMSL, &r.IRDM, &r.TotalCount, &r.ErrorCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
