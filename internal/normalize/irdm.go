package normalize

import (
	"fmt"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

const (
	iridiumBaseMHz        = 1616.0
	iridiumChannelWidthMHz = 10.0 / 240.0 // iridium-toolkit reports a channel index, not raw frequency
)

// formatIRDM reshapes an iridium-toolkit JSON object (routed on
// app.name == "iridium-toolkit") into the canonical Message.
// iridium-toolkit reports a channel number rather than a raw frequency;
// the channel is snapped onto the Iridium band starting at 1616MHz in
// ~41.667kHz steps and rendered to six decimal places in MHz. Timestamps
// are ISO-8601 strings; parse failures fall back to ingest time.
func formatIRDM(generic map[string]any) (model.Message, error) {
	root := generic

	msg := model.Message{MessageType: model.TypeIRDM}

	if ts, ok := root["timestamp"].(string); ok {
		if parsed, err := parseISOTimestamp(ts); err == nil {
			msg.Timestamp = parsed
		} else {
			msg.Timestamp = model.IngestTimestamp()
		}
	} else {
		msg.Timestamp = model.IngestTimestamp()
	}

	if channel, ok := getFloat(root, "channel"); ok {
		mhz := iridiumBaseMHz + channel*iridiumChannelWidthMHz
		msg.Freq = fmt.Sprintf("%.6f", mhz)
	}
	if level, ok := getFloat(root, "level", "confidence"); ok {
		msg.Level = &level
	}

	if acars, ok := root["acars"].(map[string]any); ok {
		msg.Tail = getString(acars, "reg", "tail")
		msg.Flight = getString(acars, "flight")
		msg.Label = getString(acars, "label")
		msg.BlockID = getString(acars, "block_id")
		msg.Ack = getString(acars, "ack")
		msg.Msgno = getString(acars, "msg_num", "msgno")
		msg.MsgText = getString(acars, "msg_text")
	}

	msg.Error = countErrors(root)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}
