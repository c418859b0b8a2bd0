package fixwire

import "testing"

func BenchmarkEncode(b *testing.B) {
	c := NewCodec()
	msg := Message{
		TagMsgType:      "D",
		TagSenderCompID: "CLIENT1",
		TagTargetCompID: "GATEWAY",
		TagMsgSeqNum:    "1",
		11:              "ORD1",
		55:              "TEST",
		54:              "1",
		38:              "2",
		40:              "2",
		44:              "100",
		59:              "0",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Encode(msg)
	}
}

func BenchmarkDecode(b *testing.B) {
	c := NewCodec()
	frame := c.Encode(Message{
		TagMsgType:      "D",
		TagSenderCompID: "CLIENT1",
		TagTargetCompID: "GATEWAY",
		TagMsgSeqNum:    "1",
		11:              "ORD1",
		55:              "TEST",
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(frame); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFrameDecode(b *testing.B) {
	c := NewCodec()
	frame := c.Encode(Message{TagMsgType: "0"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := NewDecoder(1<<20, 4096)
		_ = d.Append(frame)
		if _, _, ok := d.NextMessage(); !ok {
			b.Fatal("expected frame")
		}
	}
}
