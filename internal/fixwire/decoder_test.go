package fixwire

import (
	"bytes"
	"testing"
	"time"
)

func buildFrame(t *testing.T, msg Message) []byte {
	t.Helper()
	c := &Codec{Now: func() time.Time { return time.Unix(0, 0) }}
	return c.Encode(msg)
}

func TestDecoderYieldsConcatenatedFrames(t *testing.T) {
	msg1 := Message{TagMsgType: "0"}
	msg2 := Message{TagMsgType: "1"}
	f1 := buildFrame(t, msg1)
	f2 := buildFrame(t, msg2)

	d := NewDecoder(1<<20, 4096)
	if err := d.Append(append(append([]byte{}, f1...), f2...)); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err, ok := d.NextMessage()
	if err != nil || !ok {
		t.Fatalf("first message: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, f1) {
		t.Fatalf("first frame mismatch")
	}

	got, err, ok = d.NextMessage()
	if err != nil || !ok {
		t.Fatalf("second message: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, f2) {
		t.Fatalf("second frame mismatch")
	}

	if _, _, ok := d.NextMessage(); ok {
		t.Fatalf("expected no more frames")
	}
	if d.Pending() != 0 {
		t.Fatalf("expected empty buffer, got %d bytes pending", d.Pending())
	}
}

func TestDecoderPartialReadWaits(t *testing.T) {
	msg := Message{TagMsgType: "0"}
	frame := buildFrame(t, msg)

	d := NewDecoder(1<<20, 4096)
	_ = d.Append(frame[:len(frame)-5])
	if _, _, ok := d.NextMessage(); ok {
		t.Fatalf("expected incomplete frame to not yield a message")
	}
	_ = d.Append(frame[len(frame)-5:])
	got, err, ok := d.NextMessage()
	if err != nil || !ok {
		t.Fatalf("expected completed frame, ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("reassembled frame mismatch")
	}
}

func TestDecoderOverflowRejected(t *testing.T) {
	d := NewDecoder(10, 4096)
	if err := d.Append(make([]byte, 11)); err != ErrBufferOverflow {
		t.Fatalf("expected ErrBufferOverflow, got %v", err)
	}
}

func TestDecoderBadBodyLengthClearsBuffer(t *testing.T) {
	d := NewDecoder(1<<20, 4096)
	bad := []byte(prefix + "9=abc\x01garbage")
	if err := d.Append(bad); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err, _ := d.NextMessage(); err != ErrBadBodyLength {
		t.Fatalf("expected ErrBadBodyLength, got %v", err)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected buffer cleared after fatal decode error")
	}
}

func TestDecoderDiscardsLeadingGarbage(t *testing.T) {
	msg := Message{TagMsgType: "0"}
	frame := buildFrame(t, msg)
	noisy := append([]byte("garbage-before-frame"), frame...)

	d := NewDecoder(1<<20, 4096)
	_ = d.Append(noisy)
	got, err, ok := d.NextMessage()
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("frame mismatch after discarding garbage")
	}
}
