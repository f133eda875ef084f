package normalize

import (
	"github.com/acarshub/acars-hub-engine/internal/model"
)

// formatRawACARS handles acarsdec/vdlm2dec-style flat ACARS JSON, the
// fallback shape for anything that doesn't match a more specific decoder.
// Fields are passed through with only icao normalization applied; lookups
// happen in the enricher, and neither step renames fields.
func formatRawACARS(generic map[string]any) (model.Message, error) {
	msg := model.Message{
		MessageType: model.TypeACARS,
		Timestamp:   timestampOrIngest(generic, "timestamp", "time", "t"),
	}

	msg.Tail = getString(generic, "tail", "reg")
	msg.Flight = getString(generic, "flight")
	msg.Depa = getString(generic, "depa")
	msg.Dsta = getString(generic, "dsta")
	msg.Label = getString(generic, "label")
	msg.BlockID = getString(generic, "block_id")
	msg.Msgno = getString(generic, "msgno", "msg_num")
	msg.Ack = getString(generic, "ack")
	msg.Mode = getString(generic, "mode")
	msg.MsgText = getString(generic, "msg_text", "text")

	if freq, ok := getFloat(generic, "freq"); ok {
		msg.Freq = trimTrailingZeros(freq)
	}
	if level, ok := getFloat(generic, "level", "sig_level"); ok {
		msg.Level = &level
	}

	if icao, ok := generic["icao"]; ok {
		if hexStr, ok := model.ICAOHex(icao); ok {
			msg.ICAO = hexStr
		}
	}

	msg.Error = countErrors(generic)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}
