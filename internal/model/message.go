// Package model defines the canonical ACARS-family message shape shared by
// every decoder, formatter, and storage consumer in the pipeline.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType is the canonical decoder family a message was produced by.
type MessageType string

const (
	TypeACARS MessageType = "ACARS"
	TypeVDLM2 MessageType = "VDL-M2"
	TypeHFDL  MessageType = "HFDL"
	TypeIMSL  MessageType = "IMS-L"
	TypeIRDM  MessageType = "IRDM"
	TypeUnknown MessageType = ""
)

// CanonicalType normalizes the decoder-reported type spelling to the
// canonical form. Some sources spell VDLM2 as "VDL-M2" and IMSL as "IMS-L";
// both spellings (and case variants) normalize to the same canonical value.
func CanonicalType(raw string) MessageType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACARS":
		return TypeACARS
	case "VDLM2", "VDL-M2", "VDL2", "VDL-2":
		return TypeVDLM2
	case "HFDL":
		return TypeHFDL
	case "IMSL", "IMS-L":
		return TypeIMSL
	case "IRDM", "IRIDIUM":
		return TypeIRDM
	default:
		return TypeUnknown
	}
}

// CounterKey is the lowercase key used for per-decoder counters and table
// suffixes (freqs_<key>, level_<key>).
func (t MessageType) CounterKey() string {
	switch t {
	case TypeACARS:
		return "acars"
	case TypeVDLM2:
		return "vdlm"
	case TypeHFDL:
		return "hfdl"
	case TypeIMSL:
		return "imsl"
	case TypeIRDM:
		return "irdm"
	default:
		return ""
	}
}

// AllTypes lists every canonical decoder type in the fixed order used by
// counters, metrics, and time-series rows.
var AllTypes = []MessageType{TypeACARS, TypeVDLM2, TypeHFDL, TypeIMSL, TypeIRDM}

// Message is the immutable canonical record produced by the normalizer and
// (after enrichment) persisted exactly once. Field names mirror the wire
// vocabulary in spec.md §3; enrichment adds the *_hex/derived fields.
type Message struct {
	UID         string      `json:"uid"`
	Timestamp   int64       `json:"timestamp"`
	MessageType MessageType `json:"message_type"`
	StationID   string      `json:"station_id"`

	ToAddr   string `json:"toaddr,omitempty"`
	FromAddr string `json:"fromaddr,omitempty"`
	ICAO     string `json:"icao,omitempty"`

	Tail    string `json:"tail,omitempty"`
	Flight  string `json:"flight,omitempty"`
	Depa    string `json:"depa,omitempty"`
	Dsta    string `json:"dsta,omitempty"`
	ETA     string `json:"eta,omitempty"`
	GateOut string `json:"gtout,omitempty"`
	GateIn  string `json:"gtin,omitempty"`
	WheelsOff string `json:"wloff,omitempty"`
	WheelsIn  string `json:"wlin,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
	Alt *float64 `json:"alt,omitempty"`

	Freq       string `json:"freq,omitempty"`
	Level      *float64 `json:"level,omitempty"`
	Ack        string `json:"ack,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Label      string `json:"label,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Msgno      string `json:"msgno,omitempty"`
	IsResponse int    `json:"is_response,omitempty"`
	IsOnGround int    `json:"is_onground,omitempty"`
	End        int    `json:"end,omitempty"`
	Error      int    `json:"error,omitempty"`

	MsgText  string `json:"msg_text,omitempty"`
	Libacars string `json:"libacars,omitempty"`

	// Enrichment-derived fields. Never set by the normalizer.
	Airline          string `json:"airline,omitempty"`
	DepaName         string `json:"depa_name,omitempty"`
	DstaName         string `json:"dsta_name,omitempty"`
	ToAddrDecoded    string `json:"toaddr_decoded,omitempty"`
	FromAddrDecoded  string `json:"fromaddr_decoded,omitempty"`
	LabelDescription string `json:"label_description,omitempty"`
}

// NewUID generates a random RFC-4122 v4 UID in canonical 8-4-4-4-12 form.
func NewUID() string {
	return uuid.NewString()
}

// ICAOHex formats a raw ICAO value (numeric or hex string) as a 6-char
// uppercase, zero-padded hex string, per spec.md §3's icao_hex invariant.
func ICAOHex(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case float64:
		return fmt.Sprintf("%06X", int64(v)), true
	case int:
		return fmt.Sprintf("%06X", v), true
	case int64:
		return fmt.Sprintf("%06X", v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		if isHex(s) && hasHexLetter(s) {
			return strings.ToUpper(padLeft(s, 6)), true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fmt.Sprintf("%06X", n), true
		}
		if isHex(s) {
			return strings.ToUpper(padLeft(s, 6)), true
		}
		return "", false
	default:
		return "", false
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func hasHexLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			return true
		}
	}
	return false
}

func padLeft(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

// IngestTimestamp returns now as epoch seconds, used as the timestamp
// fallback whenever a decoder does not provide one.
func IngestTimestamp() int64 {
	return time.Now().Unix()
}
