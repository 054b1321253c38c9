// File: client/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"context"
	"sync"
	"time"

	"github.com/momentics/wsio/internal/lease"
	"github.com/momentics/wsio/registry"
	"github.com/momentics/wsio/status"
)

// Runtime owns the reconnect loop and the event-flush task described in
// §4.8, guarded by an operation mutex across its Stopped -> Running ->
// Stopping -> Stopped lifecycle.
type Runtime struct {
	cfg      *Config
	endpoint string
	dialer   Dialer
	handlers *registry.Registry

	opMu  sync.Mutex
	cell  *status.Cell
	token *lease.Token

	flush *flushQueue

	curMu   sync.Mutex
	current *Connection

	readyMu sync.Mutex
	readyCh chan struct{}

	loopDone chan struct{}
}

// NewRuntime constructs a Stopped Runtime dialing endpoint (e.g.
// "ws://host:port") once Connect is called.
func NewRuntime(endpoint string, cfg *Config) *Runtime {
	return &Runtime{
		cfg:      cfg,
		endpoint: endpoint,
		dialer:   defaultDialer,
		handlers: registry.New(),
		cell:     status.New(RuntimeStopped),
		readyCh:  make(chan struct{}),
	}
}

// SetDialer overrides the transport dialer; used by tests to substitute
// an in-memory pipe for TCP.
func (rt *Runtime) SetDialer(d Dialer) { rt.dialer = d }

// RuntimeOn registers a handler for event on the runtime's shared
// registry. Client.On is the public surface; this is exported so callers
// driving a Runtime directly (without the Client façade) can still
// register handlers.
func RuntimeOn[T any](rt *Runtime, event string, handler func(T)) uint64 {
	return registry.On(rt.handlers, event, handler)
}

func (rt *Runtime) notifyReady() {
	rt.readyMu.Lock()
	close(rt.readyCh)
	rt.readyCh = make(chan struct{})
	rt.readyMu.Unlock()
}

func (rt *Runtime) readySignal() <-chan struct{} {
	rt.readyMu.Lock()
	defer rt.readyMu.Unlock()
	return rt.readyCh
}

func (rt *Runtime) setCurrent(c *Connection) {
	rt.curMu.Lock()
	rt.current = c
	rt.curMu.Unlock()
}

func (rt *Runtime) getCurrent() *Connection {
	rt.curMu.Lock()
	defer rt.curMu.Unlock()
	return rt.current
}

// Connect starts the reconnect loop and the event-flush task. It returns
// ErrAlreadyRunning if already Running or Stopping.
func (rt *Runtime) Connect(ctx context.Context) error {
	rt.opMu.Lock()
	defer rt.opMu.Unlock()
	if rt.cfg.Namespace == "" {
		return ErrNamespaceMissing
	}
	if err := rt.cell.TryTransition(RuntimeStopped, RuntimeRunning); err != nil {
		return ErrAlreadyRunning
	}

	rt.token = lease.New(context.Background())
	rt.flush = newFlushQueue(rt.cfg.OutboundQueueCap)
	rt.loopDone = make(chan struct{})

	go rt.flushTask()
	go rt.reconnectLoop()
	return nil
}

func (rt *Runtime) reconnectLoop() {
	defer close(rt.loopDone)
	for {
		if !rt.cell.Is(RuntimeRunning) {
			return
		}

		conn, err := dial(rt.token.Context(), rt.dialer, rt.endpoint, rt.cfg.Namespace, rt.cfg.RequestPath)
		if err != nil {
			rt.cfg.Logger.Debug("dial failed, will retry")
			if !rt.sleepOrStop() {
				return
			}
			continue
		}

		c := newConnection(rt.cfg, conn, rt, rt.handlers)
		rt.setCurrent(c)
		c.run(rt.token.Context())
		rt.setCurrent(nil)

		if !rt.cell.Is(RuntimeRunning) {
			return
		}
		if !rt.sleepOrStop() {
			return
		}
	}
}

func (rt *Runtime) sleepOrStop() bool {
	select {
	case <-time.After(rt.cfg.ReconnectionDelay):
		return true
	case <-rt.token.Done():
		return false
	}
}

func (rt *Runtime) flushTask() {
	ctx := rt.token.Context()
	for {
		msg, ok := rt.flush.Pop(ctx)
		if !ok {
			return
		}
		for {
			// Capture the wakeup channel before checking state, so a
			// notifyReady() racing with this check is never missed.
			wake := rt.readySignal()
			conn := rt.getCurrent()
			if conn != nil && conn.State() == StateReady {
				if err := conn.Emit(msg.event, msg.data); err == nil {
					break
				}
			}
			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Emit enqueues event to the flush queue; it never touches the socket
// directly (§4.8), decoupling application emission from transient
// disconnects.
func (rt *Runtime) Emit(event string, data any) error {
	if !rt.cell.Is(RuntimeRunning) {
		return ErrNotRunning
	}
	if !rt.flush.Push(outboundMessage{event: event, data: data}) {
		return ErrNotRunning
	}
	return nil
}

// Disconnect wakes the reconnect loop, closes the current connection, and
// awaits the loop task, per §5's client-disconnect shutdown semantics.
func (rt *Runtime) Disconnect() {
	rt.opMu.Lock()
	defer rt.opMu.Unlock()
	if err := rt.cell.TryTransition(RuntimeRunning, RuntimeStopping); err != nil {
		return
	}

	if c := rt.getCurrent(); c != nil {
		c.close()
	}
	rt.token.Cancel()
	rt.flush.Close()
	<-rt.loopDone

	rt.cell.Store(RuntimeStopped)
}
