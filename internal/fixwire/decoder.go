// Package fixwire implements the byte-level FIX 4.0 transport: frame
// extraction from a TCP stream (Decoder) and tag/value encoding and decoding
// (Codec). Neither type does any I/O; both operate on in-memory byte slices
// so they can be driven directly from tests without a socket.
package fixwire

import "bytes"

const (
	soh    = 0x01
	prefix = "8=FIX.4.0\x01"
)

// Decoder extracts complete FIX frames from a byte stream that may deliver
// messages split across reads or several messages coalesced into one read.
// It is not safe for concurrent use; callers pin it to one connection's
// owning worker.
type Decoder struct {
	buf           []byte
	maxBufferSize int
	maxBodyLength int
}

// NewDecoder returns a Decoder bounded by maxBufferSize total buffered bytes
// and maxBodyLength for any single message body.
func NewDecoder(maxBufferSize, maxBodyLength int) *Decoder {
	return &Decoder{
		buf:           make([]byte, 0, 4096),
		maxBufferSize: maxBufferSize,
		maxBodyLength: maxBodyLength,
	}
}

// Append adds newly-read bytes to the internal buffer. It fails with
// ErrBufferOverflow if accepting data would exceed maxBufferSize; the
// comparison is written as len > cap-size rather than size+len > cap to
// avoid integer overflow on adversarial input.
func (d *Decoder) Append(data []byte) error {
	if len(data) > d.maxBufferSize-len(d.buf) {
		return ErrBufferOverflow
	}
	d.buf = append(d.buf, data...)
	return nil
}

// NextMessage scans the buffer for one complete frame and returns it,
// consuming the prefix bytes before the match and the frame itself. Callers
// must loop on NextMessage until it returns ok=false to drain any messages
// pipelined in the same read.
//
// A bad body length is a fatal decode error: the buffer is cleared (there is
// no recovering a byte offset once 9= lies) and the error is returned so the
// caller can close the session.
func (d *Decoder) NextMessage() (frame []byte, err error, ok bool) {
	idx := bytes.Index(d.buf, []byte(prefix))
	if idx < 0 {
		// Keep at most len(prefix)-1 trailing bytes: a partial prefix match
		// at the tail of the buffer must survive to be completed by the next
		// Append.
		if len(d.buf) >= len(prefix) {
			d.buf = d.buf[len(d.buf)-len(prefix)+1:]
		}
		return nil, nil, false
	}
	if idx > 0 {
		d.buf = d.buf[idx:]
	}

	bodyStart, n, err := scanBodyLength(d.buf, d.maxBodyLength)
	if err != nil {
		d.buf = d.buf[:0]
		return nil, err, false
	}
	if bodyStart < 0 {
		// Not enough bytes yet to see the full 9=<n><SOH> field.
		return nil, nil, false
	}

	// Full frame = bodyStart + n (the body) + trailing "10=NNN\x01" (7 bytes).
	frameLen := bodyStart + n + 7
	if len(d.buf) < frameLen {
		return nil, nil, false
	}

	frame = make([]byte, frameLen)
	copy(frame, d.buf[:frameLen])
	d.buf = d.buf[frameLen:]
	return frame, nil, true
}

// scanBodyLength locates the "9=<n>\x01" field immediately following the
// BeginString prefix and returns the offset of the byte after it (bodyStart)
// and the parsed length n. bodyStart is -1 if the field has not fully
// arrived yet.
func scanBodyLength(buf []byte, maxBodyLength int) (bodyStart int, n int, err error) {
	const tag = "9="
	if len(buf) < len(prefix)+len(tag) {
		return -1, 0, nil
	}
	rest := buf[len(prefix):]
	if !bytes.HasPrefix(rest, []byte(tag)) {
		return -1, 0, ErrBadBodyLength
	}
	valStart := len(prefix) + len(tag)
	sohIdx := bytes.IndexByte(buf[valStart:], soh)
	if sohIdx < 0 {
		return -1, 0, nil
	}
	valEnd := valStart + sohIdx
	n = 0
	for _, c := range buf[valStart:valEnd] {
		if c < '0' || c > '9' {
			return -1, 0, ErrBadBodyLength
		}
		n = n*10 + int(c-'0')
		if n > maxBodyLength {
			return -1, 0, ErrBadBodyLength
		}
	}
	return valEnd + 1, n, nil
}

// Pending reports the number of unconsumed bytes currently buffered.
func (d *Decoder) Pending() int { return len(d.buf) }
