package listener

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func zlogNop() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestIsCompleteJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{`{"a":1}`, true},
		{`{}`, true},
		{``, false},
		{`{"a":1`, false},
		{`"a":1}`, false},
	}
	for _, c := range cases {
		if got := isCompleteJSONObject([]byte(c.in)); got != c.want {
			t.Errorf("isCompleteJSONObject(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseChunkFixesConcatenatedObjects(t *testing.T) {
	l := &TCPListener{baseListener: newBase("acars", zlogNop())}
	l.parseChunk([]byte(`{"a":1}{"b":2}` + "\n"))

	var got []string
	for {
		select {
		case ev := <-l.Events():
			got = append(got, string(ev.Raw))
		default:
			goto done
		}
	}
done:
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(got), got)
	}
	if got[0] != `{"a":1}` || got[1] != `{"b":2}` {
		t.Fatalf("got %v, want [{\"a\":1} {\"b\":2}]", got)
	}
}

func TestParseChunkCountsMalformedLines(t *testing.T) {
	l := &TCPListener{baseListener: newBase("acars", zlogNop())}
	l.parseChunk([]byte("not json\n"))
	if l.parseErrors.Load() != 1 {
		t.Fatalf("parseErrors = %d, want 1", l.parseErrors.Load())
	}
}

func TestUDPParseDatagramIndependentPerPacket(t *testing.T) {
	u := &UDPListener{baseListener: newBase("hfdl", zlogNop())}
	u.parseDatagram([]byte(`{"x":1}`))
	u.parseDatagram([]byte(`{"y":2}`))
	if u.linesParsed.Load() != 2 {
		t.Fatalf("linesParsed = %d, want 2", u.linesParsed.Load())
	}
}
