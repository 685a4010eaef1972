// Package network implements the connection multiplexer (C8): the five
// external services of spec section 6 (raw-out, raw-in, sbs-out, sbs-in,
// http) and their shared per-connection lifecycle and fan-out contract
// from spec section 4.8.
//
// The source's reactor is a single-threaded, non-blocking poll loop
// (spec section 4.8: "built on a non-blocking socket reactor"). Go's
// idiomatic equivalent of cooperative multiplexing over many sockets is
// goroutine-per-connection with channel-based fan-out, not a hand-rolled
// epoll loop -- net/http and net.Listener already give every accept/read/
// write/close event its own goroutine, scheduled by the runtime rather
// than a manual poll(). This repository follows that idiom (grounded on
// the per-connection reader/writer goroutine shape in
// other_examples/0351b592_maniack-miniflightradar__backend-ws.go.go and
// the per-connection counters of runZeroInc-sockstats) while preserving
// every contract spec section 4.8 makes observable: per-event counters,
// best-effort fan-out with silently dropped writes, and the active/
// passive mode distinction. See DESIGN.md for the full reasoning.
package network

import (
	"bufio"
	"net"
	"sync"

	"github.com/rs/xid"
)

// outboxCapacity bounds each connection's pending-write queue; a send that
// finds it full is dropped and the connection is closed, matching spec
// section 4.8's "write: best-effort ... the reactor marks the Connection
// closing". Dropped sends are not counted.
const outboxCapacity = 256

// Connection is one network peer (spec section 3): per-service identity
// and a best-effort outbound queue. KeepAlive and redirectSent mirror the
// per-peer flags of spec section 3; nothing in this package sets or reads
// them.
type Connection struct {
	ID        string
	Service   string
	Remote    string
	KeepAlive bool

	conn   net.Conn
	outbox chan []byte
	done   chan struct{}
	once   sync.Once

	redirectSent bool
}

func newConnection(service string, conn net.Conn) *Connection {
	return &Connection{
		ID:      xid.New().String(),
		Service: service,
		Remote:  conn.RemoteAddr().String(),
		conn:    conn,
		outbox:  make(chan []byte, outboxCapacity),
		done:    make(chan struct{}),
	}
}

// Send enqueues bytes for the writer goroutine. Returns false if the
// outbox is full (the bytes are dropped and the connection is closed) or
// the connection is already closing.
func (c *Connection) Send(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- b:
		return true
	default:
		c.Close()
		return false
	}
}

// Close unblocks the writer goroutine and closes the underlying socket.
// Safe to call more than once.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writeLoop drains the outbox to the socket until Close or a write
// error, then closes the connection (spec section 4.8's write-failure ->
// closing transition). Runs on its own goroutine per connection.
func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.outbox:
			if _, err := c.conn.Write(b); err != nil {
				c.Close()
				return
			}
		}
	}
}

// lineReader wraps a bufio.Scanner sized generously for SBS/raw lines.
func lineReader(conn net.Conn) *bufio.Scanner {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), 1<<16)
	return sc
}
