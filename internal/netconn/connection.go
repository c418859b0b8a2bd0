// Package netconn implements Connection (C6): the per-socket owner that
// pins all of one client's I/O and session callbacks to a single worker
// goroutine, so the Session behind it never needs its own lock.
package netconn

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/workerpool"
)

const readBufferSize = 4096

// Connection owns one socket and a fixed threadIndex chosen at accept time
// (connFd mod N). Every write and every session callback for this
// connection is dispatched through pool.EnqueueTo(threadIndex, ...). Socket
// reads and frame decoding run on the goroutine that calls Serve, not on the
// pinned worker; only the decoded frames and I/O errors are handed to it.
type Connection struct {
	conn        net.Conn
	session     *fixcore.Session
	pool        *workerpool.Pool
	threadIndex int
	decoder     *fixwire.Decoder
	codec       *fixwire.Codec

	mu       sync.Mutex // guards writeBuf only; armed from any goroutine via Send
	writeBuf []byte
	closed   bool
}

// New wraps an accepted socket. session must already be constructed with
// this Connection installed as its Sender (SetSender) before traffic flows,
// so outbound bytes loop back through Send.
func New(conn net.Conn, session *fixcore.Session, pool *workerpool.Pool, threadIndex int, decoder *fixwire.Decoder, codec *fixwire.Codec) *Connection {
	return &Connection{
		conn: conn, session: session, pool: pool, threadIndex: threadIndex,
		decoder: decoder, codec: codec,
	}
}

// Serve runs the read loop until the peer closes or an I/O error occurs. It
// blocks the calling goroutine; gatewayd and the tests start it on a
// goroutine of its own (go conn.Serve()), separate from the pinned worker
// that its decoded frames are queued to.
func (c *Connection) Serve() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.feed(buf[:n])
		}
		if err != nil {
			reason := "peer closed"
			if !errors.Is(err, io.EOF) {
				reason = err.Error()
			}
			c.pool.EnqueueTo(c.threadIndex, func() {
				c.session.OnIOError(reason)
			})
			return
		}
	}
}

// feed hands newly-read bytes to the Frame Decoder and dispatches each
// complete frame to the session, on this connection's pinned worker. A
// decode error (overflow, bad body length, checksum mismatch) surfaces the
// same way an I/O error does: the connection cannot recover its framing and
// must be torn down.
func (c *Connection) feed(data []byte) {
	if err := c.decoder.Append(data); err != nil {
		c.pool.EnqueueTo(c.threadIndex, func() {
			c.session.OnIOError(err.Error())
		})
		return
	}
	for {
		frame, err, ok := c.decoder.NextMessage()
		if err != nil {
			c.pool.EnqueueTo(c.threadIndex, func() {
				c.session.OnIOError(err.Error())
			})
			return
		}
		if !ok {
			return
		}
		msg, decErr := c.codec.Decode(frame)
		if decErr != nil {
			log.Printf("netconn: dropping malformed frame: %v", decErr)
			continue
		}
		c.pool.EnqueueTo(c.threadIndex, func() {
			c.session.OnMessageReceived(msg)
		})
	}
}

// SendBytes implements fixcore.Sender. It copies the payload and dispatches
// a write task pinned to this connection's worker: the task appends the
// payload to the pending write buffer and flushes it if the buffer was
// empty; otherwise it only appends. There is no write-readiness callback,
// so nothing drains bytes appended behind a remainder a failed write left
// in the buffer. This is what lets Session.Send be called from any goroutine
// without a write-buffer lock of its own: the write task runs on the pinned
// worker.
func (c *Connection) SendBytes(frame []byte) {
	payload := append([]byte(nil), frame...)
	c.pool.EnqueueTo(c.threadIndex, func() {
		c.mu.Lock()
		empty := len(c.writeBuf) == 0
		c.writeBuf = append(c.writeBuf, payload...)
		c.mu.Unlock()
		if empty {
			c.flush()
		}
	})
}

// flush writes the pending buffer with one blocking Write call. net.Conn
// returns a short count only together with an error: the unwritten
// remainder stays in writeBuf and is not retried, and the error tears the
// connection down the same way a read error does.
func (c *Connection) flush() {
	c.mu.Lock()
	pending := c.writeBuf
	c.mu.Unlock()
	if len(pending) == 0 {
		return
	}
	n, err := c.conn.Write(pending)
	c.mu.Lock()
	c.writeBuf = c.writeBuf[n:]
	c.mu.Unlock()
	if err != nil {
		c.pool.EnqueueTo(c.threadIndex, func() {
			c.session.OnIOError(err.Error())
		})
	}
}

// Close implements fixcore.Sender. It is idempotent and safe to call from
// any goroutine (the session calls it on shutdown, which may be driven by
// the timing wheel rather than this connection's own worker).
func (c *Connection) Close(reason string) {
	c.pool.EnqueueTo(c.threadIndex, func() {
		if c.closed {
			return
		}
		c.closed = true
		if err := c.conn.Close(); err != nil {
			log.Printf("netconn: close for %s: %v", reason, err)
		}
	})
}
