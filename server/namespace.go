// File: server/namespace.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/wsio/internal/idgen"
	"github.com/momentics/wsio/internal/shardmap"
	"github.com/momentics/wsio/protocol"
	"github.com/momentics/wsio/registry"
	"github.com/momentics/wsio/status"
)

func connKey(id uint64) string { return strconv.FormatUint(id, 10) }

// connectionIDs is the process-wide connection-id counter shared by every
// namespace, so ids never repeat across namespaces.
var connectionIDs idgen.Counter

// Namespace groups connections that share one codec and handler
// configuration, plus the room index scoping broadcast to a subset of
// them. Grounded on the teacher's session.Store sharded map, generalized
// here from a flat session table to a namespaced one with room tracking.
type Namespace struct {
	path string
	cfg  *Config

	handlers *registry.Registry

	connections *shardmap.Map[*Connection]
	rooms       *shardmap.Map[*shardmap.IDSet]
	roomsMu     sync.Mutex // guards get-or-create on rooms

	cell *status.Cell

	wg sync.WaitGroup

	// onConnChange notifies the owning Runtime's observational weak
	// connection registry; nil when the namespace was built directly
	// rather than through a Runtime.
	onConnChange func(id uint64, added bool)
}

// NewNamespace constructs a namespace at the normalized path with cfg and
// an empty event registry shared by every connection that doesn't
// override a handler.
func NewNamespace(path string, cfg *Config) *Namespace {
	return &Namespace{
		path:        protocol.NormalizeNamespacePath(path),
		cfg:         cfg,
		handlers:    registry.New(),
		connections: shardmap.New[*Connection](16),
		rooms:       shardmap.New[*shardmap.IDSet](16),
		cell:        status.New(NamespaceRunning),
	}
}

// Path returns the immutable, slash-normalized registration path.
func (ns *Namespace) Path() string { return ns.path }

// Handlers returns the namespace's shared event registry; connections
// without a per-connection override dispatch Event packets through it.
func (ns *Namespace) Handlers() *registry.Registry { return ns.handlers }

// Accept upgrades stream into a Connection and drives its full lifecycle,
// blocking until cleanup completes. If the namespace is not Running, it
// sends a single Disconnect packet and closes cleanly instead (§4.5).
func (ns *Namespace) Accept(ctx context.Context, stream Stream, header http.Header, uri *url.URL) {
	id := connectionIDs.Next()
	conn := newConnection(id, idgen.NewSessionID(), ns, stream, header, uri)

	if !ns.cell.Is(NamespaceRunning) {
		raw, err := conn.codec.EncodePacket(protocol.DisconnectPacket())
		if err == nil {
			frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(conn.codec), Payload: raw}
			if encoded, err := protocol.EncodeFrame(frame, false); err == nil {
				_, _ = stream.Write(encoded)
			}
		}
		_ = stream.Close()
		return
	}

	ns.wg.Add(1)
	defer ns.wg.Done()
	conn.run(ctx)
}

func (ns *Namespace) addConnection(c *Connection) {
	ns.connections.Store(connKey(c.id), c)
	if ns.onConnChange != nil {
		ns.onConnChange(c.id, true)
	}
}

func (ns *Namespace) removeConnection(c *Connection) {
	ns.connections.Delete(connKey(c.id))
	if ns.onConnChange != nil {
		ns.onConnChange(c.id, false)
	}
}

// Connection looks up a live connection by id.
func (ns *Namespace) Connection(id uint64) (*Connection, bool) {
	return ns.connections.Load(connKey(id))
}

// ConnectionCount reports the number of live connections.
func (ns *Namespace) ConnectionCount() int { return ns.connections.Len() }

func (ns *Namespace) roomSet(name string) *shardmap.IDSet {
	if s, ok := ns.rooms.Load(name); ok {
		return s
	}
	ns.roomsMu.Lock()
	defer ns.roomsMu.Unlock()
	if s, ok := ns.rooms.Load(name); ok {
		return s
	}
	s := shardmap.NewIDSet()
	ns.rooms.Store(name, s)
	return s
}

func (ns *Namespace) addConnectionToRoom(name string, id uint64) {
	ns.roomSet(name).Add(id)
}

func (ns *Namespace) removeConnectionFromRoom(name string, id uint64) {
	if s, ok := ns.rooms.Load(name); ok {
		s.Remove(id)
	}
}

// Broadcast starts a to(...).except(...) operator, following the fluent
// pattern described in §4.5.
func (ns *Namespace) Broadcast() *BroadcastOp {
	return &BroadcastOp{ns: ns}
}

// BroadcastOp accumulates room includes/excludes before a terminal Emit
// or Disconnect call.
type BroadcastOp struct {
	ns       *Namespace
	includes []string
	excludes []string
}

// To restricts the target set to the union of the named rooms.
func (b *BroadcastOp) To(rooms ...string) *BroadcastOp {
	b.includes = append(b.includes, rooms...)
	return b
}

// Except removes the union of the named rooms from the target set.
func (b *BroadcastOp) Except(rooms ...string) *BroadcastOp {
	b.excludes = append(b.excludes, rooms...)
	return b
}

func (b *BroadcastOp) targetIDs() []uint64 {
	ns := b.ns
	included := make(map[uint64]struct{})
	if len(b.includes) == 0 {
		ns.connections.Range(func(_ string, c *Connection) bool {
			included[c.id] = struct{}{}
			return true
		})
	} else {
		for _, r := range b.includes {
			if s, ok := ns.rooms.Load(r); ok {
				for _, id := range s.Snapshot() {
					included[id] = struct{}{}
				}
			}
		}
	}
	for _, r := range b.excludes {
		if s, ok := ns.rooms.Load(r); ok {
			for _, id := range s.Snapshot() {
				delete(included, id)
			}
		}
	}
	ids := make([]uint64, 0, len(included))
	for id := range included {
		ids = append(ids, id)
	}
	return ids
}

// Emit encodes the Event packet once and fans it out to every resolved
// target's outbound channel, bounded by the namespace's broadcast
// concurrency limit.
func (b *BroadcastOp) Emit(ctx context.Context, event string, data any) error {
	if !b.ns.cell.Is(NamespaceRunning) {
		return ErrNamespaceNotRunning
	}
	codec := b.ns.cfg.Codec
	payload, err := codec.EncodePayload(data)
	if err != nil {
		return err
	}
	raw, err := codec.EncodePacket(protocol.EventPacket(event, payload))
	if err != nil {
		return err
	}
	frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(codec), Payload: raw}
	encoded, err := protocol.EncodeFrame(frame, false)
	if err != nil {
		return err
	}
	b.deliver(ctx, encoded)
	return nil
}

// Disconnect enqueues a Disconnect packet (instead of Event) to every
// resolved target.
func (b *BroadcastOp) Disconnect(ctx context.Context) error {
	if !b.ns.cell.Is(NamespaceRunning) {
		return ErrNamespaceNotRunning
	}
	codec := b.ns.cfg.Codec
	raw, err := codec.EncodePacket(protocol.DisconnectPacket())
	if err != nil {
		return err
	}
	frame := &protocol.Frame{IsFinal: true, Opcode: protocol.OpcodeFor(codec), Payload: raw}
	encoded, err := protocol.EncodeFrame(frame, false)
	if err != nil {
		return err
	}
	b.deliver(ctx, encoded)
	return nil
}

func (b *BroadcastOp) deliver(ctx context.Context, encoded []byte) {
	ids := b.targetIDs()
	limit := b.ns.cfg.BroadcastConcurrencyLimit
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for _, id := range ids {
		conn, ok := b.ns.connections.Load(connKey(id))
		if !ok {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *Connection) {
			defer wg.Done()
			defer func() { <-sem }()
			c.deliverRaw(encoded)
		}(conn)
	}
	wg.Wait()
}

// Shutdown transitions Running -> Stopping, disconnects every connection,
// awaits their driver tasks, then transitions Stopping -> Stopped.
func (ns *Namespace) Shutdown(ctx context.Context) error {
	if err := ns.cell.TryTransition(NamespaceRunning, NamespaceStopping); err != nil {
		return nil
	}

	var g errgroup.Group
	ns.connections.Range(func(_ string, c *Connection) bool {
		g.Go(func() error {
			c.Disconnect()
			return nil
		})
		return true
	})
	_ = g.Wait()

	ns.wg.Wait()
	ns.cell.Store(NamespaceStopped)
	return nil
}
