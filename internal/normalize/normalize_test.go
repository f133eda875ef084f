package normalize

import (
	"errors"
	"testing"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

func TestDispatchRoutesBySHape(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want model.MessageType
	}{
		{"vdlm2", `{"vdl2":{"t":{"sec":1},"freq":136975,"avlc":{"src":{"addr":"ABC123","status":"Airborne"},"acars":{"label":"Q0"}}}}`, model.TypeVDLM2},
		{"hfdl", `{"hfdl":{"t":{"sec":1},"freq":5451500}}`, model.TypeHFDL},
		{"satdump imsl", `{"source":{"app":{"name":"SatDump"}},"msg_name":"ACARS","tail":"N12345"}`, model.TypeIMSL},
		{"jaero imsl", `{"app":{"name":"JAERO"},"toaddr":"a1b2c3"}`, model.TypeIMSL},
		{"irdm", `{"app":{"name":"iridium-toolkit"},"timestamp":"2024-01-01T00:00:00Z","channel":1}`, model.TypeIRDM},
		{"raw acars", `{"tail":"N12345","label":"Q0","msg_text":"hello"}`, model.TypeACARS},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg, err := Dispatch("test", []byte(c.raw))
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if msg.MessageType != c.want {
				t.Errorf("MessageType = %v, want %v", msg.MessageType, c.want)
			}
		})
	}
}

func TestDispatchDropsNonACARSSatDumpMessages(t *testing.T) {
	_, err := Dispatch("test", []byte(`{"source":{"app":{"name":"SatDump"}},"msg_name":"Position"}`))
	if !errors.Is(err, ErrDropped) {
		t.Errorf("err = %v, want ErrDropped", err)
	}
}

func TestVDLM2FreqConvertedToMHz(t *testing.T) {
	msg, err := Dispatch("test", []byte(`{"vdl2":{"freq":136975}}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.Freq != "136.975" {
		t.Errorf("Freq = %q, want 136.975", msg.Freq)
	}
}

func TestVDLM2FreqStripsTrailingZeros(t *testing.T) {
	msg, err := Dispatch("test", []byte(`{"vdl2":{"freq":131000}}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.Freq != "131.0" {
		t.Errorf("Freq = %q, want 131.0", msg.Freq)
	}
}

func TestVDLM2IsResponseFromCR(t *testing.T) {
	msg, err := Dispatch("test", []byte(`{"vdl2":{"avlc":{"cr":"Response"}}}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.IsResponse != 1 {
		t.Errorf("IsResponse = %d, want 1", msg.IsResponse)
	}
}

func TestHFDLFreqStripsTrailingZeros(t *testing.T) {
	msg, err := Dispatch("test", []byte(`{"hfdl":{"freq":5451500}}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.Freq != "5.4515" {
		t.Errorf("Freq = %q, want 5.4515", msg.Freq)
	}
}

func TestIRDMChannelSnapsToIridiumBand(t *testing.T) {
	msg, err := Dispatch("test", []byte(`{"app":{"name":"iridium-toolkit"},"channel":0,"timestamp":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.Freq != "1616.000000" {
		t.Errorf("Freq = %q, want 1616.000000", msg.Freq)
	}
}

func TestIRDMBadTimestampFallsBackToIngestTime(t *testing.T) {
	before := model.IngestTimestamp()
	msg, err := Dispatch("test", []byte(`{"app":{"name":"iridium-toolkit"},"timestamp":"not-a-time"}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.Timestamp < before {
		t.Errorf("Timestamp = %d, want >= %d (ingest fallback)", msg.Timestamp, before)
	}
}

func TestSatDumpIMSLFixups(t *testing.T) {
	msg, err := formatSatDumpIMSL(map[string]any{
		"label":        "\x7f",
		"ack":          "\x15",
		"tail":         "N1.2.3",
		"text":         "hello.",
		"more_to_come": false,
	})
	if err != nil {
		t.Fatalf("formatSatDumpIMSL: %v", err)
	}
	if msg.Label != "d" {
		t.Errorf("Label = %q, want d", msg.Label)
	}
	if msg.Ack != "!" {
		t.Errorf("Ack = %q, want !", msg.Ack)
	}
	if msg.Tail != "N123" {
		t.Errorf("Tail = %q, want N123 (dots removed)", msg.Tail)
	}
	if msg.MsgText != "hello." {
		t.Errorf("MsgText = %q, want hello. (no trailing-dot stripping specified)", msg.MsgText)
	}
	if msg.End != 1 {
		t.Errorf("End = %d, want 1 (more_to_come false)", msg.End)
	}
}

func TestSatDumpIMSLEndFollowsMoreToCome(t *testing.T) {
	msg, err := formatSatDumpIMSL(map[string]any{"more_to_come": true})
	if err != nil {
		t.Fatalf("formatSatDumpIMSL: %v", err)
	}
	if msg.End != 0 {
		t.Errorf("End = %d, want 0 (more_to_come true)", msg.End)
	}
}

func TestJAEROIMSLDestAddrUppercased(t *testing.T) {
	msg, err := formatJAEROIMSL(map[string]any{"toaddr": "a1b2c3"})
	if err != nil {
		t.Fatalf("formatJAEROIMSL: %v", err)
	}
	if msg.ToAddr != "A1B2C3" {
		t.Errorf("ToAddr = %q, want A1B2C3", msg.ToAddr)
	}
}

func TestCountErrorsRecursive(t *testing.T) {
	n := countErrors(map[string]any{
		"err": true,
		"nested": map[string]any{
			"err": true,
		},
		"list": []any{
			map[string]any{"err": false},
			map[string]any{"err": true},
		},
	})
	if n != 3 {
		t.Errorf("countErrors = %d, want 3", n)
	}
}
