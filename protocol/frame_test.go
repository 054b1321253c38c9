package protocol_test

import (
	"bytes"
	"testing"

	"github.com/momentics/wsio/protocol"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		mask    bool
	}{
		{"empty-unmasked", nil, false},
		{"small-unmasked", []byte("hello"), false},
		{"small-masked", []byte("hello"), true},
		{"medium", bytes.Repeat([]byte("a"), 200), false},
		{"extended64", bytes.Repeat([]byte("b"), 70000), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeBinary, Payload: c.payload, PayloadLen: int64(len(c.payload))}
			raw, err := protocol.EncodeFrame(f, c.mask)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			got, n, err := protocol.DecodeFrame(raw)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if got == nil {
				t.Fatalf("DecodeFrame reported incomplete frame for a complete buffer")
			}
			if n != len(raw) {
				t.Fatalf("consumed %d bytes, want %d", n, len(raw))
			}
			if !bytes.Equal(got.Payload, c.payload) {
				t.Fatalf("payload mismatch: got %q want %q", got.Payload, c.payload)
			}
			if got.Masked != c.mask {
				t.Fatalf("masked flag mismatch: got %v want %v", got.Masked, c.mask)
			}
		})
	}
}

func TestDecodeFrameIncomplete(t *testing.T) {
	f := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeText, Payload: []byte("incomplete"), PayloadLen: 10}
	raw, err := protocol.EncodeFrame(f, false)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	got, n, err := protocol.DecodeFrame(raw[:len(raw)-3])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil || n != 0 {
		t.Fatalf("expected incomplete-frame signal, got frame=%v n=%d", got, n)
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeBinary, PayloadLen: protocol.MaxFramePayload + 1}
	if _, err := protocol.EncodeFrame(f, false); err != protocol.ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestPacketValidate(t *testing.T) {
	if err := protocol.EventPacket("x", []byte("y")).Validate(false); err != nil {
		t.Fatalf("valid event packet rejected: %v", err)
	}
	bad := protocol.Packet{T: protocol.TypeEvent}
	if err := bad.Validate(false); err == nil {
		t.Fatalf("expected error for event packet without key")
	}
	if err := protocol.ServerInitPacket("sid", nil).Validate(true); err == nil {
		t.Fatalf("expected error for server init packet without data")
	}
	if err := protocol.ReadyPacket().Validate(false); err != nil {
		t.Fatalf("valid ready packet rejected: %v", err)
	}
}
