// Package enrich adds derived fields to a normalized message: a uid when
// missing, the hex-normalized icao (written back into the icao field),
// the airline name from the flight number, airport and ground-station
// names, and the label description. Field names are left as the
// normalizer set them (nothing is renamed), and no separate icao_hex
// field is produced. Enrichment is a pure function of (message, lookup
// tables) — it never mutates its input, matching the teacher's
// IdentityResolver pattern of resolving against a loaded table rather
// than touching the caller's struct (internal/ingest/identity.go).
package enrich

import (
	"regexp"
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// protectedKeys are never dropped by the empty-field cleanup pass, even
// when their value is the zero value, because their absence vs presence
// is itself meaningful downstream (search, display, dedup).
var protectedKeys = map[string]bool{
	"uid": true, "matched": true, "matched_text": true, "matched_icao": true,
	"matched_tail": true, "matched_flight": true, "text": true, "timestamp": true,
	"message_type": true, "station_id": true,
}

var flightPattern = regexp.MustCompile(`^([A-Z]{2,4})(\d+)`)

// Tables bundles every lookup table the enricher consults.
type Tables struct {
	Airlines       AirlineTable
	Airports       AirportTable
	GroundStations GroundStationTable
	Labels         LabelTable
}

// Enrich returns a new, enriched copy of msg. msg itself is never modified.
func Enrich(msg model.Message, tables Tables) model.Message {
	out := msg

	if out.UID == "" {
		out.UID = model.NewUID()
	}

	if out.ICAO != "" {
		if hexStr, ok := model.ICAOHex(out.ICAO); ok {
			out.ICAO = hexStr
		}
	}

	if out.Flight != "" {
		if name, ok := resolveAirline(out.Flight, tables.Airlines); ok {
			out.Airline = name
		}
	}

	if out.Depa != "" {
		if name, ok := tables.Airports.Resolve(out.Depa); ok {
			out.DepaName = name
		}
	}
	if out.Dsta != "" {
		if name, ok := tables.Airports.Resolve(out.Dsta); ok {
			out.DstaName = name
		}
	}

	if out.ToAddr != "" {
		if name, ok := tables.GroundStations.Resolve(out.ToAddr); ok {
			out.ToAddrDecoded = name + " (" + strings.ToUpper(out.ToAddr) + ")"
		}
	}
	if out.FromAddr != "" {
		if name, ok := tables.GroundStations.Resolve(out.FromAddr); ok {
			out.FromAddrDecoded = name + " (" + strings.ToUpper(out.FromAddr) + ")"
		}
	}

	out.LabelDescription = tables.Labels.Describe(out.Label)

	return out
}

// resolveAirline decodes a flight number into its two-to-four letter
// carrier prefix and looks it up: override table first, then IATA code
// in the main table, then an ICAO-code scan of the main table.
func resolveAirline(flight string, airlines AirlineTable) (string, bool) {
	m := flightPattern.FindStringSubmatch(strings.ToUpper(flight))
	if m == nil {
		return "", false
	}
	code := m[1]
	if name, ok := airlines.Overrides[code]; ok {
		return name, true
	}
	if name, ok := airlines.ByIATA[code]; ok {
		return name, true
	}
	if name, ok := airlines.ByICAO[code]; ok {
		return name, true
	}
	return "", false
}

// StripEmptyFields returns a map with null/empty-string/zero-value keys
// removed, except for the protected set that must survive even when
// empty because their presence is part of the contract downstream
// consumers rely on.
func StripEmptyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if protectedKeys[k] {
			out[k] = v
			continue
		}
		if isEmptyValue(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	default:
		return false
	}
}
