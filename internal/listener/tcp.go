package listener

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultTCPReconnectDelay = time.Second

// TCPListener connects to a decoder's newline-delimited JSON socket,
// reconnecting on any read/dial error. Many decoders (notably acarsdec)
// emit back-to-back JSON objects with no separating newline; TCPListener
// repairs that by turning "}{" into "}\n{" before splitting on newlines,
// the same fixup acarshub's own ingest path historically applies.
type TCPListener struct {
	baseListener
	addr           string
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

func NewTCP(decoder, host string, port int, log zerolog.Logger) *TCPListener {
	return &TCPListener{
		baseListener:   newBase(decoder, log),
		addr:           net.JoinHostPort(host, itoa(port)),
		reconnectDelay: defaultTCPReconnectDelay,
	}
}

func (t *TCPListener) Start() error {
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.wg.Add(1)
	go t.run()
	return nil
}

func (t *TCPListener) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

func (t *TCPListener) run() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ctx.Done():
			t.setConnected(false)
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", t.addr, 5*time.Second)
		if err != nil {
			t.emit(Event{Kind: EventError, Err: err})
			if !t.sleep(t.reconnectDelay) {
				return
			}
			continue
		}

		t.setConnected(true)
		t.reconnects.Add(1)
		t.readLoop(conn)
		conn.Close()
		t.setConnected(false)

		if !t.sleep(t.reconnectDelay) {
			return
		}
	}
}

// readLoop reads newline-delimited JSON objects from conn until it
// errors or the listener is stopped. A read timeout is treated as
// normal idle behavior, not a disconnect: decoder feeds can go quiet for
// long stretches between messages. Bytes read before a timeout are kept
// in pending and prefixed to the next line, so an object split across
// reads is parsed whole.
func (t *TCPListener) readLoop(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, 64*1024)
	var pending []byte

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		chunk, err := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			t.bytesRead.Add(int64(len(chunk)))
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				pending = append(pending, chunk...)
				continue
			}
			if len(pending)+len(chunk) > 0 {
				t.parseChunk(append(pending, chunk...))
			}
			return
		}
		t.parseChunk(append(pending, chunk...))
		pending = nil
	}
}

// parseChunk applies the }{ -> }\n{ fixup (several decoders emit
// back-to-back JSON objects with no separating newline) and emits one
// message event per complete JSON object the fixup and newline split
// produce.
func (t *TCPListener) parseChunk(buf []byte) {
	fixed := bytes.ReplaceAll(buf, []byte("}{"), []byte("}\n{"))
	for _, line := range bytes.Split(fixed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !isCompleteJSONObject(line) {
			t.parseErrors.Add(1)
			continue
		}
		t.linesParsed.Add(1)
		cp := make([]byte, len(line))
		copy(cp, line)
		t.emit(Event{Kind: EventMessage, Raw: cp})
	}
}

func isCompleteJSONObject(b []byte) bool {
	return len(b) > 0 && b[0] == '{' && b[len(b)-1] == '}'
}

func (t *TCPListener) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-t.ctx.Done():
		return false
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
