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

type peer struct {
	client net.Conn
	wr     *wireReader
}

func dialPeer(t *testing.T, ns *server.Namespace) *peer {
	t.Helper()
	s, c := net.Pipe()
	p := &peer{client: c, wr: newWireReader(c, codec.JSON{})}
	go ns.Accept(context.Background(), s, http.Header{}, &url.URL{})
	_ = p.wr.next(t) // Init
	return p
}

func (p *peer) awaitReady(t *testing.T) {
	t.Helper()
	pkt := p.wr.next(t)
	if pkt.T != protocol.TypeReady {
		t.Fatalf("expected Ready, got %v", pkt.T)
	}
}

// TestRoomBroadcastScopesToMembers implements scenario S4: three
// connections, two in room r1, one in r2; a broadcast to r1 must reach
// exactly those two.
func TestRoomBroadcastScopesToMembers(t *testing.T) {
	captured := make(chan *server.Connection, 1)

	cfg := server.DefaultConfig(codec.JSON{})
	cfg.OnConnect = func(ctx context.Context, c *server.Connection) error {
		captured <- c
		return nil
	}
	ns := server.NewNamespace("/n", cfg)

	p1 := dialPeer(t, ns)
	defer p1.client.Close()
	p1.awaitReady(t)
	c1 := <-captured

	p2 := dialPeer(t, ns)
	defer p2.client.Close()
	p2.awaitReady(t)
	c2 := <-captured

	p3 := dialPeer(t, ns)
	defer p3.client.Close()
	p3.awaitReady(t)
	c3 := <-captured

	c1.Join("r1")
	c2.Join("r1")
	c3.Join("r2")

	if err := ns.Broadcast().To("r1").Emit(context.Background(), "x", "hi"); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	for _, p := range []*peer{p1, p2} {
		pkt := p.wr.next(t)
		if pkt.T != protocol.TypeEvent || pkt.Event() != "x" {
			t.Fatalf("expected event x, got %v/%s", pkt.T, pkt.Event())
		}
		var payload string
		if err := codec.JSON{}.DecodePayload(pkt.D, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload != "hi" {
			t.Fatalf("payload = %q, want hi", payload)
		}
	}

	p3.client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, err := p3.wr.fr.ReadFrame(); err == nil {
		t.Fatalf("c3 should not have received the room broadcast")
	}
}

func TestDuplicateNamespaceRejected(t *testing.T) {
	rt := server.NewRuntime()
	cfg := server.DefaultConfig(codec.JSON{})
	if _, err := rt.NewNamespaceBuilder("/dup", cfg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := rt.NewNamespaceBuilder("/dup", cfg); err != server.ErrDuplicateNamespace {
		t.Fatalf("expected ErrDuplicateNamespace, got %v", err)
	}
}

func TestRuntimeEmitFansOutAcrossNamespaces(t *testing.T) {
	rt := server.NewRuntime()
	cfg := server.DefaultConfig(codec.JSON{})
	ns, err := rt.NewNamespaceBuilder("/n", cfg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	p := dialPeer(t, ns)
	defer p.client.Close()
	p.awaitReady(t)

	if err := rt.Emit(context.Background(), "broadcast", 42); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	pkt := p.wr.next(t)
	if pkt.T != protocol.TypeEvent || pkt.Event() != "broadcast" {
		t.Fatalf("unexpected packet: %+v", pkt)
	}
}
