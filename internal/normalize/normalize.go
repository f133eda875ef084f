// Package normalize turns raw decoder JSON into canonical model.Message
// values. Routing is shape-based: each decoder has a distinctive top-level
// key or app.name value, mirroring the teacher's router.ParseTopic
// string-routing pattern (internal/ingest/router.go) but dispatching on
// JSON shape instead of an MQTT topic string.
package normalize

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/acarshub/acars-hub-engine/internal/model"
)

// ErrDropped is returned for a recognized-but-uninteresting shape that the
// routing rules say to discard rather than pass through as raw ACARS.
var ErrDropped = errors.New("normalize: message dropped by routing rule")

// Dispatch inspects raw decoder JSON and routes it to the matching
// formatter, in the same order the routing rules are checked. Unrecognized
// shapes fall through to the RawACARS formatter, which passes the message
// through with minimal reshaping.
func Dispatch(decoder string, raw []byte) (model.Message, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return model.Message{}, err
	}

	if _, ok := generic["vdl2"]; ok {
		return formatVDLM2(generic)
	}
	if _, ok := generic["hfdl"]; ok {
		return formatHFDL(generic)
	}
	if name, ok := nestedString(generic, "source", "app", "name"); ok && name == "SatDump" {
		if getString(generic, "msg_name") == "ACARS" {
			return formatSatDumpIMSL(generic)
		}
		return model.Message{}, ErrDropped
	}
	if appName, _ := appDotName(generic); appName != "" {
		switch appName {
		case "JAERO":
			return formatJAEROIMSL(generic)
		case "iridium-toolkit":
			return formatIRDM(generic)
		}
	}
	return formatRawACARS(generic)
}

func appDotName(m map[string]any) (string, bool) {
	app, ok := m["app"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := app["name"].(string)
	return name, ok
}

func nestedString(m map[string]any, path ...string) (string, bool) {
	obj, ok := nested(m, path[:len(path)-1]...)
	if !ok {
		return "", false
	}
	name, ok := obj[path[len(path)-1]].(string)
	return name, ok
}

// countErrors recursively counts truthy "err" keys anywhere in the
// decoded object, used to populate the canonical error field the same
// way across every formatter.
func countErrors(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for k, val := range t {
			if k == "err" && isTruthy(val) {
				n++
			}
			n += countErrors(val)
		}
		return n
	case []any:
		n := 0
		for _, item := range t {
			n += countErrors(item)
		}
		return n
	default:
		return 0
	}
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && strings.ToLower(t) != "false"
	default:
		return false
	}
}

func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case float64:
				return t, true
			case string:
				if f, err := strconv.ParseFloat(t, 64); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}

func nested(m map[string]any, path ...string) (map[string]any, bool) {
	cur := m
	for _, p := range path {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func timestampOrIngest(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case float64:
				return int64(t)
			case string:
				if ts, err := parseISOTimestamp(t); err == nil {
					return ts
				}
			}
		}
	}
	return model.IngestTimestamp()
}
