package server_test

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/momentics/wsio/codec"
	"github.com/momentics/wsio/protocol"
	"github.com/momentics/wsio/server"
)

// wireReader reads one decoded Packet at a time off a raw net.Conn,
// standing in for a peer that speaks the frame/packet protocol directly
// without a client.Connection state machine.
type wireReader struct {
	fr    *protocol.FrameReader
	codec protocol.Codec
}

func newWireReader(conn net.Conn, c protocol.Codec) *wireReader {
	return &wireReader{fr: protocol.NewFrameReader(conn), codec: c}
}

func (w *wireReader) next(t *testing.T) protocol.Packet {
	t.Helper()
	f, err := w.fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	pkt, err := w.codec.DecodePacket(f.Payload)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	return pkt
}

func writePacket(t *testing.T, conn net.Conn, c protocol.Codec, pkt protocol.Packet) {
	t.Helper()
	raw, err := c.EncodePacket(pkt)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(c), Payload: raw}
	encoded, err := protocol.EncodeFrame(frame, true)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if _, err := conn.Write(encoded); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestHandshakeWithoutAuth(t *testing.T) {
	cfg := server.DefaultConfig(codec.JSON{})
	ns := server.NewNamespace("/n", cfg)

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		ns.Accept(context.Background(), serverConn, http.Header{}, &url.URL{})
		close(done)
	}()

	wr := newWireReader(clientConn, codec.JSON{})

	initPkt := wr.next(t)
	if initPkt.T != protocol.TypeInit {
		t.Fatalf("expected Init, got %v", initPkt.T)
	}
	var requiresAuth bool
	if err := codec.JSON{}.DecodePayload(initPkt.D, &requiresAuth); err != nil {
		t.Fatalf("decode requires_auth: %v", err)
	}
	if requiresAuth {
		t.Fatalf("expected requires_auth=false")
	}

	readyPkt := wr.next(t)
	if readyPkt.T != protocol.TypeReady {
		t.Fatalf("expected Ready, got %v", readyPkt.T)
	}

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return after peer close")
	}
}

func TestHandshakeWithAuth(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5, 6, 7}
	var gotAuthData []byte

	cfg := server.DefaultConfig(codec.JSON{})
	cfg.AuthHandler = func(ctx context.Context, data []byte, c protocol.Codec) error {
		gotAuthData = data
		return nil
	}
	ns := server.NewNamespace("/n", cfg)

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	go ns.Accept(context.Background(), serverConn, http.Header{}, &url.URL{})

	wr := newWireReader(clientConn, codec.JSON{})

	initPkt := wr.next(t)
	var requiresAuth bool
	_ = codec.JSON{}.DecodePayload(initPkt.D, &requiresAuth)
	if !requiresAuth {
		t.Fatalf("expected requires_auth=true")
	}

	writePacket(t, clientConn, codec.JSON{}, protocol.AuthPacket(want))

	readyPkt := wr.next(t)
	if readyPkt.T != protocol.TypeReady {
		t.Fatalf("expected Ready, got %v", readyPkt.T)
	}
	if string(gotAuthData) != string(want) {
		t.Fatalf("auth handler got %v, want %v", gotAuthData, want)
	}
}

func TestAuthTimeoutClosesConnection(t *testing.T) {
	cfg := server.DefaultConfig(codec.JSON{})
	cfg.AuthHandler = func(ctx context.Context, data []byte, c protocol.Codec) error { return nil }
	cfg.AuthPacketTimeout = 30 * time.Millisecond
	ns := server.NewNamespace("/n", cfg)

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		ns.Accept(context.Background(), serverConn, http.Header{}, &url.URL{})
		close(done)
	}()

	wr := newWireReader(clientConn, codec.JSON{})
	_ = wr.next(t) // Init

	f, err := wr.fr.ReadFrame()
	if err != nil {
		t.Fatalf("expected a Close frame after auth watchdog fires, got error: %v", err)
	}
	if f.Opcode != protocol.OpcodeClose {
		t.Fatalf("expected Close frame opcode, got %d", f.Opcode)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return after watchdog close")
	}
}
