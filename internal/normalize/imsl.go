package normalize

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// formatSatDumpIMSL reshapes a SatDump Inmarsat L-band ACARS JSON object
// into the canonical Message. SatDump encodes two non-printable bytes as
// substitutes: 0x7f in a label in place of 'd', and 0x15 in the ack field
// in place of '!'; both are fixed up here. Tail registrations have their
// embedded dots removed, and end is the logical negation of more_to_come.
func formatSatDumpIMSL(generic map[string]any) (model.Message, error) {
	msg := model.Message{
		MessageType: model.TypeIMSL,
		Timestamp:   timestampOrIngest(generic, "timestamp", "t"),
	}

	label := getString(generic, "label")
	msg.Label = strings.ReplaceAll(label, "\x7f", "d")

	ack := getString(generic, "ack")
	msg.Ack = strings.ReplaceAll(ack, "\x15", "!")

	msg.MsgText = getString(generic, "text", "msg_text")

	tail := getString(generic, "tail", "reg")
	msg.Tail = strings.ReplaceAll(tail, ".", "")

	msg.Flight = getString(generic, "flight")
	msg.BlockID = getString(generic, "block_id")
	msg.Msgno = getString(generic, "msgno", "msg_num")
	if !isTruthy(generic["more_to_come"]) {
		msg.End = 1
	}

	msg.Error = countErrors(generic)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}

// formatJAEROIMSL reshapes a SatDump JAERO frontend JSON object into the
// canonical Message. toaddr/fromaddr arrive as ICAO hex strings; the
// destination hex is always rendered uppercase. Libacars payloads, when
// present, are stored serialized as-is.
func formatJAEROIMSL(generic map[string]any) (model.Message, error) {
	msg := model.Message{
		MessageType: model.TypeIMSL,
		Timestamp:   timestampOrIngest(generic, "timestamp", "t"),
	}

	if to := getString(generic, "toaddr"); to != "" {
		msg.ToAddr = strings.ToUpper(to)
	}
	if from := getString(generic, "fromaddr"); from != "" {
		msg.FromAddr = strings.ToUpper(from)
	}
	if hexStr, ok := hexBytesToAddr(msg.ToAddr); ok {
		msg.ToAddr = hexStr
	}

	if libacars, ok := generic["libacars"]; ok {
		if b, err := json.Marshal(libacars); err == nil {
			msg.Libacars = string(b)
		}
	}

	msg.Tail = getString(generic, "tail", "reg")
	msg.Flight = getString(generic, "flight")
	msg.Label = getString(generic, "label")
	msg.MsgText = getString(generic, "text", "msg_text")

	msg.Error = countErrors(generic)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}

func hexBytesToAddr(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", false
	}
	return strings.ToUpper(s), true
}
