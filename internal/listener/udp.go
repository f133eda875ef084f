package listener

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultUDPReconnectDelay = 5 * time.Second

// UDPListener binds a connected UDP socket for a decoder that emits one
// JSON object per datagram (dumpvdl2, dumphfdl). Each datagram is parsed
// independently: UDP delivers whole datagrams or nothing, so there is no
// cross-datagram reassembly to do, unlike the TCP listener.
type UDPListener struct {
	baseListener
	addr           string
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

func NewUDP(decoder, host string, port int, log zerolog.Logger) *UDPListener {
	return &UDPListener{
		baseListener:   newBase(decoder, log),
		addr:           net.JoinHostPort(host, itoa(port)),
		reconnectDelay: defaultUDPReconnectDelay,
	}
}

func (u *UDPListener) Start() error {
	u.ctx, u.cancel = context.WithCancel(context.Background())
	u.wg.Add(1)
	go u.run()
	return nil
}

func (u *UDPListener) Stop() {
	if u.cancel != nil {
		u.cancel()
	}
	u.wg.Wait()
}

func (u *UDPListener) run() {
	defer u.wg.Done()
	for {
		select {
		case <-u.ctx.Done():
			u.setConnected(false)
			return
		default:
		}

		raddr, err := net.ResolveUDPAddr("udp", u.addr)
		if err != nil {
			u.emit(Event{Kind: EventError, Err: err})
			if !u.sleep() {
				return
			}
			continue
		}
		conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: raddr.Port})
		if err != nil {
			u.emit(Event{Kind: EventError, Err: err})
			if !u.sleep() {
				return
			}
			continue
		}

		u.setConnected(true)
		u.reconnects.Add(1)
		u.readLoop(conn)
		conn.Close()
		u.setConnected(false)

		if !u.sleep() {
			return
		}
	}
}

func (u *UDPListener) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-u.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if n > 0 {
			u.bytesRead.Add(int64(n))
			u.parseDatagram(buf[:n])
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
	}
}

func (u *UDPListener) parseDatagram(raw []byte) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return
	}
	if !isCompleteJSONObject(line) {
		u.parseErrors.Add(1)
		return
	}
	u.linesParsed.Add(1)
	cp := make([]byte, len(line))
	copy(cp, line)
	u.emit(Event{Kind: EventMessage, Raw: cp})
}

func (u *UDPListener) sleep() bool {
	select {
	case <-time.After(u.reconnectDelay):
		return true
	case <-u.ctx.Done():
		return false
	}
}
