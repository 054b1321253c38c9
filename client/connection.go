// File: client/connection.go
// Package client implements the client half of wsio: a Connection state
// machine mirroring server.Connection with directions reversed, and a
// Runtime driving the reconnect loop and the event-flush task.
//
// Grounded on the teacher's client.Client reconnect-and-redial loop and
// its WSConnection reader/writer split, reworked around the init/auth/
// ready handshake instead of a raw echo session.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/wsio/internal/lease"
	"github.com/momentics/wsio/protocol"
	"github.com/momentics/wsio/registry"
	"github.com/momentics/wsio/status"
)

// Stream is the duplex byte stream a Connection drives.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

type outboundFrame struct {
	data    []byte
	closing bool
}

// Connection is one dialed WebSocket session.
type Connection struct {
	cfg    *Config
	codec  protocol.Codec
	stream Stream
	rt     *Runtime
	logger *zap.Logger

	sessionID string

	cell  *status.Cell
	token *lease.Token

	outbound chan outboundFrame
	handlers *registry.Registry

	timerMu    sync.Mutex
	initTimer  *time.Timer
	readyTimer *time.Timer

	readerDone chan struct{}
	writerDone chan struct{}
}

func newConnection(cfg *Config, stream Stream, rt *Runtime, handlers *registry.Registry) *Connection {
	return &Connection{
		cfg:        cfg,
		codec:      cfg.Codec,
		stream:     stream,
		rt:         rt,
		logger:     cfg.Logger,
		cell:       status.New(StateCreated),
		token:      lease.New(context.Background()),
		outbound:   make(chan outboundFrame, clamp(cfg.OutboundQueueCap, 64, 4096)),
		handlers:   handlers,
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// State reports the current connection state.
func (c *Connection) State() status.Value { return c.cell.Get() }

// SessionID returns the session id carried by the server's Init packet,
// or "" before it arrives.
func (c *Connection) SessionID() string { return c.sessionID }

// run drives one dial: AwaitingInit watchdog arm, reader/writer tasks,
// and teardown. It blocks until the session ends.
func (c *Connection) run(parent context.Context) {
	c.cell.Store(StateAwaitingInit)
	c.armInitWatchdog()

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

	c.disarmInitWatchdog()
	c.disarmReadyWatchdog()
	c.cell.Store(StateClosed)
}

func (c *Connection) armInitWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.initTimer = time.AfterFunc(c.cfg.InitPacketTimeout, func() { c.close() })
}

func (c *Connection) disarmInitWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.initTimer != nil {
		c.initTimer.Stop()
		c.initTimer = nil
	}
}

func (c *Connection) armReadyWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.readyTimer = time.AfterFunc(c.cfg.ReadyPacketTimeout, func() { c.close() })
}

func (c *Connection) disarmReadyWatchdog() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.readyTimer != nil {
		c.readyTimer.Stop()
		c.readyTimer = nil
	}
}

func (c *Connection) close() {
	s := c.cell.Get()
	if s == StateClosing || s == StateClosed {
		return
	}
	c.cell.Store(StateClosing)
	select {
	case c.outbound <- outboundFrame{closing: true}:
	default:
	}
}

// Emit encodes and enqueues an Event packet; callers must already have
// confirmed Ready (the Runtime's flush task is the only internal caller).
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

func (c *Connection) sendPacketBlocking(ctx context.Context, pkt protocol.Packet) error {
	raw, err := c.codec.EncodePacket(pkt)
	if err != nil {
		return err
	}
	frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(c.codec), Payload: raw}
	encoded, err := protocol.EncodeFrame(frame, true)
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
			// Packets this process receives are always server-authored,
			// so an Init packet here must carry the requires-auth payload.
			if err := pkt.Validate(true); err != nil {
				c.close()
				return
			}
			if c.handleIncomingPacket(pkt) {
				return
			}
		}
	}
}

func (c *Connection) handleIncomingPacket(pkt protocol.Packet) (stop bool) {
	switch pkt.T {
	case protocol.TypeInit:
		if !c.cell.Is(StateAwaitingInit) {
			c.close()
			return true
		}
		c.disarmInitWatchdog()
		c.sessionID = pkt.SessionID()

		var requiresAuth bool
		if err := c.codec.DecodePayload(pkt.D, &requiresAuth); err != nil {
			c.close()
			return true
		}
		c.cell.Store(StateAwaitingReady)
		c.armReadyWatchdog()

		if requiresAuth {
			go c.performAuth()
		}
		return false

	case protocol.TypeReady:
		if !c.cell.Is(StateAwaitingReady) {
			c.close()
			return true
		}
		c.disarmReadyWatchdog()
		c.cell.Store(StateReady)
		c.rt.notifyReady()
		if c.cfg.OnConnectionReady != nil {
			go c.cfg.OnConnectionReady(c)
		}
		return false

	case protocol.TypeEvent:
		c.handlers.Dispatch(c.token.Context(), pkt.Event(), pkt.D, c.codec)
		return false

	case protocol.TypeDisconnect:
		go c.rt.Disconnect()
		return true

	default:
		c.close()
		return true
	}
}

func (c *Connection) performAuth() {
	actx, cancel := context.WithTimeout(c.token.Context(), c.cfg.AuthHandlerTimeout)
	defer cancel()
	data, err := c.cfg.AuthHandler(actx)
	if err != nil {
		c.close()
		return
	}
	if !c.cell.Is(StateAwaitingReady) {
		return
	}
	_ = c.sendPacketBlocking(c.token.Context(), protocol.AuthPacket(data))
}

func (c *Connection) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case job := <-c.outbound:
			if job.closing {
				frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeClose}
				encoded, err := protocol.EncodeFrame(frame, true)
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
