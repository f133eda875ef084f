package normalize

import "time"

// parseISOTimestamp parses the RFC3339-ish timestamps some decoders
// (SatDump's JAERO frontend in particular) emit, returning epoch seconds.
func parseISOTimestamp(s string) (int64, error) {
	for _, layout := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, errNotISOTimestamp
}

var errNotISOTimestamp = timestampParseError("not an ISO-8601 timestamp")

type timestampParseError string

func (e timestampParseError) Error() string { return string(e) }
