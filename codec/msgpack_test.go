package codec_test

import (
	"testing"

	"github.com/momentics/wsio/codec"
	"github.com/momentics/wsio/protocol"
)

func TestMsgPackPacketRoundTrip(t *testing.T) {
	c := codec.MsgPack{}
	encoded, err := c.EncodePayload(false)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	want := protocol.ServerInitPacket("sid-2", encoded)

	raw, err := c.EncodePacket(want)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	got, err := c.DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if got.T != want.T || got.SessionID() != want.SessionID() {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	var requiresAuth bool
	if err := c.DecodePayload(got.D, &requiresAuth); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if requiresAuth {
		t.Fatalf("requiresAuth = true, want false")
	}
}

func TestMsgPackPayloadRoundTrip(t *testing.T) {
	c := codec.MsgPack{}
	type userPayload struct {
		Name  string
		Score int
		Tags  []string
	}
	want := userPayload{Name: "grace", Score: 7, Tags: []string{"x", "y", "z"}}

	raw, err := c.EncodePayload(want)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	var got userPayload
	if err := c.DecodePayload(raw, &got); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got.Name != want.Name || got.Score != want.Score || len(got.Tags) != len(want.Tags) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMsgPackIsBinaryFraming(t *testing.T) {
	mp := codec.MsgPack{}
	if mp.IsTextFraming() {
		t.Fatalf("MsgPack must report binary framing")
	}
	js := codec.JSON{}
	if !js.IsTextFraming() {
		t.Fatalf("JSON must report text framing")
	}
}
