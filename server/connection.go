// File: server/connection.go
// Package server implements the server half of wsio: the per-socket
// Connection state machine, Namespace room/broadcast bookkeeping, and the
// Runtime that owns the namespace table.
//
// Connection is grounded on the teacher's protocol.WSConnection reader/
// writer task split and its cancellation-token-driven teardown, adapted
// here to the Init/Auth/Activate/Ready handshake and to room/namespace
// bookkeeping the teacher's session package never had.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/wsio/internal/lease"
	"github.com/momentics/wsio/protocol"
	"github.com/momentics/wsio/registry"
	"github.com/momentics/wsio/status"
)

// Stream is the duplex byte stream a Connection drives. A hijacked
// net.Conn satisfies it; tests use an in-memory pipe.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

type outboundFrame struct {
	data    []byte
	closing bool
}

// Connection is one upgraded WebSocket session, owned strongly by its
// Namespace's connection map and by its own reader/writer tasks.
type Connection struct {
	id        uint64
	sessionID string

	ns     *Namespace
	codec  protocol.Codec
	stream Stream
	logger *zap.Logger

	cell  *status.Cell
	token *lease.Token

	outbound chan outboundFrame

	overridesMu sync.RWMutex
	overrides   *registry.Registry

	roomsMu sync.Mutex
	rooms   map[string]struct{}

	header http.Header
	uri    *url.URL

	onClose CloseHandler

	authTimer  *time.Timer
	timerMu    sync.Mutex

	readerDone chan struct{}
	writerDone chan struct{}
}

func newConnection(id uint64, sessionID string, ns *Namespace, stream Stream, header http.Header, uri *url.URL) *Connection {
	return &Connection{
		id:         id,
		sessionID:  sessionID,
		ns:         ns,
		codec:      ns.cfg.Codec,
		stream:     stream,
		logger:     ns.cfg.Logger,
		cell:       status.New(StateCreated),
		token:      lease.New(context.Background()),
		outbound:   make(chan outboundFrame, ns.cfg.outboundCapacity()),
		rooms:      make(map[string]struct{}),
		header:     header,
		uri:        uri,
		onClose:    ns.cfg.OnClose,
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// ID returns the process-wide monotonic connection identity.
func (c *Connection) ID() uint64 { return c.id }

// SessionID returns the wire-visible session identifier carried on Init.
func (c *Connection) SessionID() string { return c.sessionID }

// Header returns the captured upgrade request headers.
func (c *Connection) Header() http.Header { return c.header }

// URI returns the captured upgrade request URI.
func (c *Connection) URI() *url.URL { return c.uri }

// State reports the current connection state.
func (c *Connection) State() status.Value { return c.cell.Get() }

// On registers a per-connection handler override for event, taking
// precedence over the namespace's registry for this connection only.
func On[T any](c *Connection, event string, handler func(T)) uint64 {
	c.overridesMu.Lock()
	if c.overrides == nil {
		c.overrides = registry.New()
	}
	r := c.overrides
	c.overridesMu.Unlock()
	return registry.On(r, event, handler)
}

// SetOnClose overrides the namespace's default on-close hook for this
// connection.
func (c *Connection) SetOnClose(h CloseHandler) { c.onClose = h }

// run drives the connection end to end: init, reader/writer supervision,
// and cleanup. It returns once cleanup has completed.
func (c *Connection) run(parent context.Context) {
	if err := c.init(parent); err != nil {
		c.logger.Debug("connection init failed", zap.Uint64("id", c.id), zap.Error(err))
		close(c.readerDone)
		close(c.writerDone)
		c.cleanup(parent)
		return
	}

	go c.readLoop()
	go c.writeLoop()

	select {
	case <-c.readerDone:
	case <-c.writerDone:
	}
	c.token.Cancel()
	// readLoop is parked in a blocking stream.Read with no way to observe
	// the cancellation token; closing the stream is what actually unparks
	// it, matching the supervisor's "aborts the other" half of §4.4.
	_ = c.stream.Close()
	<-c.readerDone
	<-c.writerDone

	c.cleanup(parent)
}

// init implements §4.4 transition 1.
func (c *Connection) init(ctx context.Context) error {
	requiresAuth := c.ns.cfg.AuthHandler != nil
	encoded, err := c.codec.EncodePayload(requiresAuth)
	if err != nil {
		return err
	}
	pkt := protocol.ServerInitPacket(c.sessionID, encoded)
	if err := c.sendPacketBlocking(ctx, pkt); err != nil {
		return err
	}

	if requiresAuth {
		if err := c.cell.TryTransition(StateCreated, StateAwaitingAuth); err != nil {
			return err
		}
		c.armAuthWatchdog()
		return nil
	}
	return c.activate(ctx)
}

func (c *Connection) armAuthWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.authTimer = time.AfterFunc(c.ns.cfg.AuthPacketTimeout, func() {
		c.close()
	})
}

func (c *Connection) disarmAuthWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}
}

// handleAuth implements §4.4 transition 2.
func (c *Connection) handleAuth(ctx context.Context, data []byte) {
	if err := c.cell.TryTransition(StateAwaitingAuth, StateAuthenticating); err != nil {
		c.close()
		return
	}
	c.disarmAuthWatchdog()

	actx, cancel := context.WithTimeout(ctx, c.ns.cfg.AuthHandlerTimeout)
	defer cancel()
	if err := c.ns.cfg.AuthHandler(actx, data, c.codec); err != nil {
		c.close()
		return
	}
	if err := c.activate(ctx); err != nil {
		c.close()
	}
}

// activate implements §4.4 transition 3.
func (c *Connection) activate(ctx context.Context) error {
	if err := c.cell.TryTransition(StateAuthenticating, StateActivating); err != nil {
		if err2 := c.cell.TryTransition(StateCreated, StateActivating); err2 != nil {
			return err
		}
	}

	mctx, mcancel := context.WithTimeout(ctx, c.ns.cfg.MiddlewareExecutionTimeout)
	for _, mw := range c.ns.cfg.Middlewares {
		if err := mw(mctx, c); err != nil {
			mcancel()
			return err
		}
	}
	mcancel()

	if c.ns.cfg.OnConnect != nil {
		cctx, ccancel := context.WithTimeout(ctx, c.ns.cfg.OnConnectHandlerTimeout)
		err := c.ns.cfg.OnConnect(cctx, c)
		ccancel()
		if err != nil {
			return err
		}
	}

	c.ns.addConnection(c)

	if err := c.cell.TryTransition(StateActivating, StateReady); err != nil {
		return err
	}
	if err := c.sendPacketBlocking(ctx, protocol.ReadyPacket()); err != nil {
		return err
	}

	if c.ns.cfg.OnReady != nil {
		go c.ns.cfg.OnReady(c)
	}
	return nil
}

// Emit implements §4.4 transition 4.
func (c *Connection) Emit(event string, data any) error {
	if !c.cell.Is(StateReady) {
		return ErrNotReady
	}
	encoded, err := c.codec.EncodePayload(data)
	if err != nil {
		return err
	}
	return c.sendPacketBlocking(c.token.Context(), protocol.EventPacket(event, encoded))
}

// Disconnect implements §4.4 transition 5.
func (c *Connection) Disconnect() {
	_ = c.sendPacketBlocking(c.token.Context(), protocol.DisconnectPacket())
	c.close()
}

// close implements §4.4 transition 6: idempotent, best-effort Close frame.
func (c *Connection) close() {
	s := c.cell.Get()
	if s == StateClosing || s == StateClosed {
		return
	}
	c.cell.Store(StateClosing)
	// Non-blocking per §4.4 transition 6: if the outbound channel is full
	// the Close frame is dropped, and teardown instead relies entirely on
	// run()'s supervisor closing the stream once either task returns.
	select {
	case c.outbound <- outboundFrame{closing: true}:
	default:
	}
}

// cleanup implements §4.4 transition 7, run exactly once by run() after
// both tasks have settled.
func (c *Connection) cleanup(ctx context.Context) {
	c.cell.Store(StateClosing)
	c.disarmAuthWatchdog()

	c.ns.removeConnection(c)
	c.leaveAllRooms()

	c.token.Cancel()

	if c.onClose != nil {
		hctx, cancel := context.WithTimeout(ctx, c.ns.cfg.OnCloseHandlerTimeout)
		c.onClose(hctx, c)
		cancel()
	}

	_ = c.stream.Close()
	c.cell.Store(StateClosed)
}

func (c *Connection) sendPacketBlocking(ctx context.Context, pkt protocol.Packet) error {
	raw, err := c.codec.EncodePacket(pkt)
	if err != nil {
		return err
	}
	frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(c.codec), Payload: raw}
	encoded, err := protocol.EncodeFrame(frame, false)
	if err != nil {
		return err
	}
	select {
	case c.outbound <- outboundFrame{data: encoded}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.token.Done():
		return nil
	}
}

func (c *Connection) readLoop() {
	defer close(c.readerDone)

	fr := protocol.NewFrameReader(c.stream)
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			return
		}
		switch frame.Opcode {
		case protocol.OpcodeClose:
			return
		case protocol.OpcodeText, protocol.OpcodeBinary:
			pkt, err := c.codec.DecodePacket(frame.Payload)
			if err != nil {
				c.close()
				return
			}
			// Packets this process receives are always client-authored;
			// a server Init packet is never inbound here.
			if err := pkt.Validate(false); err != nil {
				c.close()
				return
			}
			if c.handleIncomingPacket(pkt) {
				return
			}
		default:
			// Ping/Pong/Continuation are not produced by peers speaking this
			// protocol; ignore rather than fail the connection.
		}
	}
}

// handleIncomingPacket returns true if the reader loop must stop.
func (c *Connection) handleIncomingPacket(pkt protocol.Packet) bool {
	switch pkt.T {
	case protocol.TypeAuth:
		if !c.cell.Is(StateAwaitingAuth) {
			c.close()
			return true
		}
		c.handleAuth(c.token.Context(), pkt.D)
		return false
	case protocol.TypeEvent:
		event := pkt.Event()
		c.overridesMu.RLock()
		ov := c.overrides
		c.overridesMu.RUnlock()
		if ov != nil && ov.Has(event) {
			ov.Dispatch(c.token.Context(), event, pkt.D, c.codec)
		} else {
			c.ns.handlers.Dispatch(c.token.Context(), event, pkt.D, c.codec)
		}
		return false
	case protocol.TypeDisconnect:
		c.close()
		return true
	default:
		// Init/Ready are server->client only; receiving either here is a
		// protocol violation.
		c.close()
		return true
	}
}

func (c *Connection) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case job := <-c.outbound:
			if job.closing {
				frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeClose}
				encoded, err := protocol.EncodeFrame(frame, false)
				if err == nil {
					_, _ = c.stream.Write(encoded)
				}
				return
			}
			if _, err := c.stream.Write(job.data); err != nil {
				return
			}
		case <-c.token.Done():
			return
		}
	}
}

// --- room membership, mirrored against the namespace's room index ---

// Join adds the connection to each named room (§4.5).
func (c *Connection) Join(names ...string) {
	c.roomsMu.Lock()
	for _, n := range names {
		c.rooms[n] = struct{}{}
	}
	c.roomsMu.Unlock()
	for _, n := range names {
		c.ns.addConnectionToRoom(n, c.id)
	}
}

// Leave removes the connection from each named room.
func (c *Connection) Leave(names ...string) {
	c.roomsMu.Lock()
	for _, n := range names {
		delete(c.rooms, n)
	}
	c.roomsMu.Unlock()
	for _, n := range names {
		c.ns.removeConnectionFromRoom(n, c.id)
	}
}

// Rooms returns a snapshot of the rooms currently joined.
func (c *Connection) Rooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for n := range c.rooms {
		out = append(out, n)
	}
	return out
}

func (c *Connection) leaveAllRooms() {
	c.roomsMu.Lock()
	names := make([]string, 0, len(c.rooms))
	for n := range c.rooms {
		names = append(names, n)
	}
	c.rooms = make(map[string]struct{})
	c.roomsMu.Unlock()
	for _, n := range names {
		c.ns.removeConnectionFromRoom(n, c.id)
	}
}

// deliverRaw pushes an already-encoded frame directly to the outbound
// channel, used by the namespace's broadcast operator to share one
// encoded frame across every target connection. It fails silently for a
// non-Ready connection, per §4.5.
func (c *Connection) deliverRaw(encoded []byte) {
	if !c.cell.Is(StateReady) {
		return
	}
	select {
	case c.outbound <- outboundFrame{data: encoded}:
	case <-c.token.Done():
	}
}
