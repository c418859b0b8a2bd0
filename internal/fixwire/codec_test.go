package fixwire

import (
	"testing"
	"time"
)

func testCodec() *Codec {
	return &Codec{Now: func() time.Time { return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) }}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := testCodec()
	msg := Message{
		TagMsgType:      "D",
		TagSenderCompID: "CLIENT1",
		TagTargetCompID: "GATEWAY",
		TagMsgSeqNum:    "7",
		11:              "ORD1",
		55:              "TEST",
		54:              "1",
		38:              "2",
		40:              "2",
		44:              "100",
		59:              "0",
	}
	frame := c.Encode(msg)

	decoded, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for tag, want := range msg {
		got, ok := decoded[tag]
		if !ok || got != want {
			t.Fatalf("tag %d: got %q, want %q (ok=%v)", tag, got, want, ok)
		}
	}
	if _, ok := decoded[TagSendingTime]; !ok {
		t.Fatalf("expected auto-filled SendingTime")
	}
}

func TestEncodeFieldOrder(t *testing.T) {
	c := testCodec()
	msg := Message{
		TagMsgType:      "A",
		TagSenderCompID: "C",
		TagTargetCompID: "T",
		TagMsgSeqNum:    "1",
		98:              "0",
		108:             "30",
	}
	frame := string(c.Encode(msg))

	wantPrefix := prefix
	if frame[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("frame does not begin with BeginString prefix")
	}
	idxBody := indexOf(frame, "9=")
	idxType := indexOf(frame, "35=A")
	idxSender := indexOf(frame, "49=C")
	idxTarget := indexOf(frame, "56=T")
	idxSeq := indexOf(frame, "34=1")
	idxSending := indexOf(frame, "52=")
	idxOther1 := indexOf(frame, "98=0")
	idxOther2 := indexOf(frame, "108=30")
	idxCheck := indexOf(frame, "10=")

	order := []int{idxBody, idxType, idxSender, idxTarget, idxSeq, idxSending, idxOther1, idxOther2, idxCheck}
	for i := 1; i < len(order); i++ {
		if order[i] <= order[i-1] {
			t.Fatalf("field order violated at position %d: %v", i, order)
		}
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestDecodeDetectsChecksumTamper(t *testing.T) {
	c := testCodec()
	frame := c.Encode(Message{TagMsgType: "0"})
	tampered := append([]byte{}, frame...)
	tampered[len(tampered)-2] ^= 0xFF

	if _, err := c.Decode(tampered); err != ErrChecksumMismatch && err != ErrBodyLengthMismatch {
		t.Fatalf("expected tamper to be detected, got %v", err)
	}
}

func TestDecodeBodyLengthMismatch(t *testing.T) {
	c := testCodec()
	frame := string(c.Encode(Message{TagMsgType: "0"}))
	// Corrupt the declared body length only.
	corrupted := []byte(replaceFirst(frame, "9=", "9=999999"))
	if _, err := c.Decode(corrupted); err == nil {
		t.Fatalf("expected an error for corrupted body length")
	}
}

func replaceFirst(s, old, new string) string {
	i := indexOf(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}

func TestBodyLengthMatchesMeasuredRange(t *testing.T) {
	c := testCodec()
	frame := c.Encode(Message{TagMsgType: "0", 112: "XYZ"})
	decoded, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[112] != "XYZ" {
		t.Fatalf("expected TestReqID echoed through round trip")
	}
}
