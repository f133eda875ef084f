package enrich

import (
	"testing"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

func TestEnrichDoesNotMutateInput(t *testing.T) {
	in := model.Message{Flight: "UAL123", ICAO: "abc123"}
	_ = Enrich(in, Tables{})
	if in.UID != "" {
		t.Error("input message was mutated")
	}
}

func TestEnrichAssignsUID(t *testing.T) {
	out := Enrich(model.Message{}, Tables{})
	if out.UID == "" {
		t.Error("expected a generated UID")
	}
}

func TestEnrichAirlineLookupChain(t *testing.T) {
	tables := Tables{
		Airlines: AirlineTable{
			Overrides: map[string]string{"UAL": "United Override"},
			ByIATA:    map[string]string{"UA": "United IATA"},
			ByICAO:    map[string]string{"UAL": "United ICAO"},
		},
	}

	out := Enrich(model.Message{Flight: "UAL123"}, tables)
	if out.Airline != "United Override" {
		t.Errorf("Airline = %q, want override to win", out.Airline)
	}

	tables.Airlines.Overrides = map[string]string{}
	out = Enrich(model.Message{Flight: "UA123"}, tables)
	if out.Airline != "United IATA" {
		t.Errorf("Airline = %q, want IATA match", out.Airline)
	}
}

func TestEnrichLabelDefaultsWhenUnknown(t *testing.T) {
	out := Enrich(model.Message{Label: "Q0"}, Tables{})
	if out.LabelDescription != "Unknown Message Label" {
		t.Errorf("LabelDescription = %q, want default", out.LabelDescription)
	}
}

func TestEnrichGroundStationDecoded(t *testing.T) {
	tables := Tables{GroundStations: GroundStationTable{byHex: map[string]string{"ABCDEF": "Test Station"}}}
	out := Enrich(model.Message{ToAddr: "abcdef"}, tables)
	if out.ToAddrDecoded != "Test Station (ABCDEF)" {
		t.Errorf("ToAddrDecoded = %q, want 'Test Station (ABCDEF)'", out.ToAddrDecoded)
	}
}

func TestStripEmptyFieldsKeepsProtectedKeys(t *testing.T) {
	fields := map[string]any{
		"uid":   "",
		"icao":  "",
		"text":  "hi",
		"empty": nil,
	}
	out := StripEmptyFields(fields)
	if _, ok := out["uid"]; !ok {
		t.Error("protected key uid was dropped despite being empty")
	}
	if _, ok := out["icao"]; ok {
		t.Error("empty non-protected key icao should be dropped")
	}
	if _, ok := out["empty"]; ok {
		t.Error("nil value should be dropped")
	}
}
