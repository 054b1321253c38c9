package codec_test

import (
	"testing"

	"github.com/momentics/wsio/codec"
	"github.com/momentics/wsio/protocol"
)

func TestJSONPacketRoundTrip(t *testing.T) {
	c := codec.JSON{}
	encoded, err := c.EncodePayload(true)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	want := protocol.ServerInitPacket("sid-1", encoded)

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
	if !requiresAuth {
		t.Fatalf("requiresAuth = false, want true")
	}
}

func TestJSONPayloadRoundTrip(t *testing.T) {
	c := codec.JSON{}
	type userPayload struct {
		Name  string   `json:"name"`
		Score int      `json:"score"`
		Tags  []string `json:"tags"`
	}
	want := userPayload{Name: "ada", Score: 42, Tags: []string{"a", "b"}}

	raw, err := c.EncodePayload(want)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	var got userPayload
	if err := c.DecodePayload(raw, &got); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestJSONEventPacketRoundTrip(t *testing.T) {
	c := codec.JSON{}
	encoded, err := c.EncodePayload("hi")
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	raw, err := c.EncodePacket(protocol.EventPacket("chat", encoded))
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	got, err := c.DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if got.T != protocol.TypeEvent || got.Event() != "chat" {
		t.Fatalf("got %+v", got)
	}
	var payload string
	if err := c.DecodePayload(got.D, &payload); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if payload != "hi" {
		t.Fatalf("payload = %q, want hi", payload)
	}
}
