// Package importer migrates legacy round-robin-database archives into
// the timeseries_stats table on first startup after an upgrade. Its
// shell-out-and-parse shape is grounded on the teacher's external-process
// patterns (internal/transcribe's call to an external STT binary) and
// its idempotency-marker renames mirror internal/storage/local.go's
// atomic-rename-on-success convention.
package importer

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/store"
)

const defaultBatchSize = 500

// Archive describes one legacy RRD file and the row spacing its coarse
// resolution expands into one-minute rows at.
type Archive struct {
	Name           string        // e.g. "1min-25h"
	Path           string        // legacy .rrd file path
	ExpandToRows   int           // how many consecutive 1-min rows one source row expands to
}

// DefaultArchives returns the four archives acarshub historically kept,
// rooted at dir.
func DefaultArchives(dir string) []Archive {
	return []Archive{
		{Name: "1min-25h", Path: filepath.Join(dir, "1min.rrd"), ExpandToRows: 1},
		{Name: "5min-30d", Path: filepath.Join(dir, "5min.rrd"), ExpandToRows: 5},
		{Name: "1h-180d", Path: filepath.Join(dir, "1h.rrd"), ExpandToRows: 60},
		{Name: "6h-3y", Path: filepath.Join(dir, "6h.rrd"), ExpandToRows: 360},
	}
}

// rrdFetch is the external process invocation used to dump an archive's
// rows. It is a var so tests can stub it without shelling out.
var rrdFetch = func(path string) ([]byte, error) {
	return exec.Command("rrdtool", "fetch", path, "AVERAGE").Output()
}

// Importer runs the one-time legacy archive migration.
type Importer struct {
	st        *store.Store
	log       zerolog.Logger
	batchSize int
}

func New(st *store.Store, log zerolog.Logger) *Importer {
	return &Importer{st: st, log: log.With().Str("component", "importer").Logger(), batchSize: defaultBatchSize}
}

// Run imports every archive in archives. One archive's failure is
// logged and does not prevent the others from running.
func (im *Importer) Run(archives []Archive) {
	for _, a := range archives {
		if err := im.runOne(a); err != nil {
			im.log.Error().Err(err).Str("archive", a.Name).Msg("legacy archive import failed")
		}
	}
}

func (im *Importer) runOne(a Archive) error {
	backPath := a.Path + ".back"
	corruptPath := a.Path + ".corrupt"

	if _, err := os.Stat(backPath); err == nil {
		already, err := im.hasAnyTimeSeriesRows()
		if err != nil {
			return err
		}
		if already {
			im.log.Debug().Str("archive", a.Name).Msg("already imported, skipping")
			return nil
		}
	}

	info, err := os.Stat(a.Path)
	if os.IsNotExist(err) {
		im.log.Debug().Str("archive", a.Name).Msg("legacy file missing, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() || info.Size() == 0 {
		return os.Rename(a.Path, corruptPath)
	}

	out, err := rrdFetch(a.Path)
	if err != nil {
		if renameErr := os.Rename(a.Path, corruptPath); renameErr != nil {
			im.log.Warn().Err(renameErr).Msg("failed to mark corrupt archive")
		}
		return fmt.Errorf("rrd fetch: %w", err)
	}

	rows, err := parseRRDRows(out)
	if err != nil {
		return err
	}

	if err := im.insertExpanded(rows, a.ExpandToRows); err != nil {
		return err
	}

	return os.Rename(a.Path, backPath)
}

func (im *Importer) hasAnyTimeSeriesRows() (bool, error) {
	rows, err := im.st.QueryTimeSeriesRange("1min", 0, math.MaxInt64)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// rrdRow is one parsed row: a unix timestamp plus the 7 legacy columns
// in their fixed order.
type rrdRow struct {
	ts                                             int64
	acars, vdlm, total, errorCount, hfdl, imsl, irdm float64
}

// parseRRDRows parses rrdtool fetch's header-line-then-data-rows output.
// Each data row is "<timestamp>: <col> <col> ... <col>" in scientific
// notation; "nan" columns become 0.
func parseRRDRows(out []byte) ([]rrdRow, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	var rows []rrdRow
	headerSeen := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		parts := strings.Fields(strings.ReplaceAll(line, ":", " "))
		if len(parts) < 8 {
			continue
		}
		ts, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		vals := make([]float64, 7)
		for i := 0; i < 7; i++ {
			v, err := strconv.ParseFloat(parts[i+1], 64)
			if err != nil || math.IsNaN(v) {
				v = 0
			}
			vals[i] = math.Round(v)
		}
		rows = append(rows, rrdRow{
			ts: ts, acars: vals[0], vdlm: vals[1], total: vals[2],
			errorCount: vals[3], hfdl: vals[4], imsl: vals[5], irdm: vals[6],
		})
	}
	return rows, scanner.Err()
}

// insertExpanded writes each source row out as expandTo consecutive
// one-minute rows, 60 seconds apart, matching the source archive's
// native resolution (a 5-min source row becomes 5 one-minute rows, etc).
func (im *Importer) insertExpanded(rows []rrdRow, expandTo int) error {
	if expandTo < 1 {
		expandTo = 1
	}
	batch := make([]store.TimeSeriesRow, 0, im.batchSize)

	flush := func() error {
		for _, r := range batch {
			if err := im.st.InsertTimeSeriesRow(r); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	for _, r := range rows {
		for i := 0; i < expandTo; i++ {
			batch = append(batch, store.TimeSeriesRow{
				Timestamp:  r.ts + int64(i*60),
				Resolution: "1min",
				ACARS:      int64(r.acars),
				VDLM:       int64(r.vdlm),
				HFDL:       int64(r.hfdl),
				IMSL:       int64(r.imsl),
				IRDM:       int64(r.irdm),
				TotalCount: int64(r.total),
				ErrorCount: int64(r.errorCount),
			})
			if len(batch) >= im.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}
