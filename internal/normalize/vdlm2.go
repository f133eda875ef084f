package normalize

import (
	"fmt"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// formatVDLM2 reshapes a dumpvdl2 JSON object (keyed under "vdl2") into the
// canonical Message. Frequencies arrive in kHz (e.g. 136975) and are
// reformatted to MHz with trailing zeros trimmed (minimum one decimal
// digit); is_onground follows src.status (0 for "Airborne", 2 for any
// other reported status); is_response follows the avlc.cr field
// ("Response" vs "Command").
func formatVDLM2(generic map[string]any) (model.Message, error) {
	vdl2, _ := generic["vdl2"].(map[string]any)
	if vdl2 == nil {
		return model.Message{}, fmt.Errorf("vdlm2: missing vdl2 object")
	}

	msg := model.Message{
		MessageType: model.TypeVDLM2,
		Timestamp:   timestampOrIngest(vdl2, "t"),
	}

	if freqHz, ok := getFloat(vdl2, "freq"); ok {
		msg.Freq = trimTrailingZeros(freqHz / 1000)
	}
	if level, ok := getFloat(vdl2, "sig_level"); ok {
		msg.Level = &level
	}

	avlc, _ := vdl2["avlc"].(map[string]any)
	if avlc != nil {
		if cr := getString(avlc, "cr"); cr == "Response" {
			msg.IsResponse = 1
		}
		src, _ := avlc["src"].(map[string]any)
		if src != nil {
			if status := getString(src, "status"); status == "Airborne" {
				msg.IsOnGround = 0
			} else if status != "" {
				msg.IsOnGround = 2
			}
			msg.Tail = getString(src, "addr")
		}
		if acars, ok := avlc["acars"].(map[string]any); ok {
			msg.Tail = getString(acars, "reg", "tail")
			msg.Flight = getString(acars, "flight")
			msg.Label = getString(acars, "label")
			msg.BlockID = getString(acars, "block_id")
			msg.Ack = getString(acars, "ack")
			msg.Msgno = getString(acars, "msg_num", "msgno")
			msg.MsgText = getString(acars, "msg_text")
		}
	}

	msg.Error = countErrors(vdl2)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}
