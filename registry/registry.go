// Package registry implements the event-name -> (payload type, decoder,
// handler set) table described in the core spec: it routes an incoming
// Event packet's key to zero-or-more user handlers typed on the payload.
//
// Dispatch decodes the packet data once and fans out to every registered
// handler on its own detached goroutine; handlers are independent of one
// another and a panicking handler cannot take down its siblings or the
// owning connection.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package registry

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/momentics/wsio/protocol"
)

type decodeFunc func(c protocol.Codec, raw []byte) (any, error)
type handlerFunc func(v any)

type entry struct {
	typ      reflect.Type
	decode   decodeFunc
	handlers map[uint64]handlerFunc
}

// Registry maps event names to a single payload type and its handler set.
// The zero value is not usable; construct with New.
type Registry struct {
	mu     sync.RWMutex
	events map[string]*entry
	nextID atomic.Uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{events: make(map[string]*entry)}
}

// On registers handler for event, decoding its payload as T. Registering a
// second, different payload type T for an already-registered event is a
// programmer error and panics, per the single-type-per-event invariant.
// The returned handler id can be passed to OffByHandlerID.
func On[T any](r *Registry, event string, handler func(T)) uint64 {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[event]
	if !ok {
		e = &entry{
			typ: typ,
			decode: func(c protocol.Codec, raw []byte) (any, error) {
				var v T
				if err := c.DecodePayload(raw, &v); err != nil {
					return nil, err
				}
				return v, nil
			},
			handlers: make(map[uint64]handlerFunc),
		}
		r.events[event] = e
	} else if e.typ != typ {
		panic(fmt.Sprintf("registry: event %q already registered with payload type %s, cannot register handler for %s", event, e.typ, typ))
	}

	id := r.nextID.Add(1)
	e.handlers[id] = func(v any) { handler(v.(T)) }
	return id
}

// Off drops every handler registered for event.
func (r *Registry) Off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, event)
}

// OffByHandlerID removes a single handler; the event entry itself is
// dropped once its last handler leaves.
func (r *Registry) OffByHandlerID(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[event]
	if !ok {
		return
	}
	delete(e.handlers, id)
	if len(e.handlers) == 0 {
		delete(r.events, event)
	}
}

// Has reports whether event currently has at least one registered handler.
func (r *Registry) Has(event string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.events[event]
	return ok
}

// Dispatch decodes raw as the registered payload type for event and
// invokes every handler on its own goroutine. An unknown event or a
// decode failure silently drops the packet. ctx bounds the handler
// goroutines: a handler observing ctx cancelled before it was scheduled
// is skipped, mirroring the connection's cancellation token reach.
func (r *Registry) Dispatch(ctx context.Context, event string, raw []byte, c protocol.Codec) {
	r.mu.RLock()
	e, ok := r.events[event]
	r.mu.RUnlock()
	if !ok {
		return
	}

	v, err := e.decode(c, raw)
	if err != nil {
		return
	}

	r.mu.RLock()
	fns := make([]handlerFunc, 0, len(e.handlers))
	for _, fn := range e.handlers {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn := fn
		go func() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			defer func() { _ = recover() }()
			fn(v)
		}()
	}
}
