package enrich

import (
	"bufio"
	"encoding/csv"
	"os"
	"strings"
)

// AirlineTable resolves an IATA/ICAO carrier code to a display name.
// Overrides takes precedence over the main table's IATA lookup, which in
// turn takes precedence over a scan of the main table's ICAO codes.
type AirlineTable struct {
	Overrides map[string]string
	ByIATA    map[string]string
	ByICAO    map[string]string
}

// AirportTable resolves an IATA/ICAO airport code to its display name.
type AirportTable struct {
	byCode map[string]string
}

func (a AirportTable) Resolve(code string) (string, bool) {
	name, ok := a.byCode[strings.ToUpper(code)]
	return name, ok
}

// GroundStationTable resolves a ground-station hex address to its name.
type GroundStationTable struct {
	byHex map[string]string
}

func (g GroundStationTable) Resolve(hex string) (string, bool) {
	name, ok := g.byHex[strings.ToUpper(hex)]
	return name, ok
}

// LabelTable resolves an ACARS message label to a human description.
type LabelTable struct {
	byLabel map[string]string
}

func (l LabelTable) Describe(label string) string {
	if name, ok := l.byLabel[label]; ok {
		return name
	}
	return "Unknown Message Label"
}

// LoadAirlines reads a 3-column CSV (iata,icao,name) from path. An empty
// path yields an empty (always-miss) table.
func LoadAirlines(path string) (AirlineTable, error) {
	t := AirlineTable{
		Overrides: map[string]string{},
		ByIATA:    map[string]string{},
		ByICAO:    map[string]string{},
	}
	if path == "" {
		return t, nil
	}
	rows, err := readCSV(path)
	if err != nil {
		return t, err
	}
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		iata, icao, name := strings.ToUpper(row[0]), strings.ToUpper(row[1]), row[2]
		if iata != "" {
			t.ByIATA[iata] = name
		}
		if icao != "" {
			t.ByICAO[icao] = name
		}
	}
	return t, nil
}

// LoadAirports reads a 2-column CSV (code,name) from path.
func LoadAirports(path string) (AirportTable, error) {
	t := AirportTable{byCode: map[string]string{}}
	if path == "" {
		return t, nil
	}
	rows, err := readCSV(path)
	if err != nil {
		return t, err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		t.byCode[strings.ToUpper(row[0])] = row[1]
	}
	return t, nil
}

// LoadGroundStations reads a 2-column CSV (hex,name) from path.
func LoadGroundStations(path string) (GroundStationTable, error) {
	t := GroundStationTable{byHex: map[string]string{}}
	if path == "" {
		return t, nil
	}
	rows, err := readCSV(path)
	if err != nil {
		return t, err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		t.byHex[strings.ToUpper(row[0])] = row[1]
	}
	return t, nil
}

// LoadLabels reads a 2-column CSV (label,description) from path.
func LoadLabels(path string) (LabelTable, error) {
	t := LabelTable{byLabel: map[string]string{}}
	if path == "" {
		return t, nil
	}
	rows, err := readCSV(path)
	if err != nil {
		return t, err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		t.byLabel[row[0]] = row[1]
	}
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
