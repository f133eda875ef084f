package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// formatHFDL reshapes a dumphfdl JSON object (keyed under "hfdl") into the
// canonical Message. Frequency is reported in Hz and reformatted to MHz
// with trailing zeros stripped (but at least one digit after the point);
// signal level is truncated, not rounded, to one decimal place.
func formatHFDL(generic map[string]any) (model.Message, error) {
	hfdl, _ := generic["hfdl"].(map[string]any)
	if hfdl == nil {
		return model.Message{}, fmt.Errorf("hfdl: missing hfdl object")
	}

	msg := model.Message{
		MessageType: model.TypeHFDL,
		Timestamp:   timestampOrIngest(hfdl, "t"),
	}

	if freqHz, ok := getFloat(hfdl, "freq"); ok {
		msg.Freq = trimTrailingZeros(freqHz / 1_000_000)
	}
	if level, ok := getFloat(hfdl, "sig_level"); ok {
		truncated := truncate1(level)
		msg.Level = &truncated
	}

	if lpdu, ok := hfdl["lpdu"].(map[string]any); ok {
		if hfnpdu, ok := lpdu["hfnpdu"].(map[string]any); ok {
			if acars, ok := hfnpdu["acars"].(map[string]any); ok {
				msg.Tail = getString(acars, "reg", "tail")
				msg.Flight = getString(acars, "flight")
				msg.Label = getString(acars, "label")
				msg.BlockID = getString(acars, "block_id")
				msg.Ack = getString(acars, "ack")
				msg.Msgno = getString(acars, "msg_num", "msgno")
				msg.MsgText = getString(acars, "msg_text")
			}
		}
	}

	msg.Error = countErrors(hfdl)
	msg.StationID = getString(generic, "station", "station_id")
	return msg, nil
}

func trimTrailingZeros(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func truncate1(f float64) float64 {
	return float64(int64(f*10)) / 10
}
