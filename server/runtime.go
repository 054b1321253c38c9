// File: server/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/wsio/internal/shardmap"
	"github.com/momentics/wsio/protocol"
	"github.com/momentics/wsio/status"
)

// Runtime owns the namespace registry and fans out cross-namespace
// operations: global emit, namespace removal, and orderly shutdown.
// Grounded on the teacher's server.HioloadServer top-level lifecycle,
// generalized from a single accept loop to a namespace table.
type Runtime struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace

	// connRegistry is a purely observational weak view: existence/count
	// checks only, never a source of strong ownership (§9 cyclic-
	// ownership note — the namespace map is the only strong owner).
	connRegistry *shardmap.Map[struct{}]

	cell *status.Cell
}

// NewRuntime constructs an empty, Running runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		namespaces:   make(map[string]*Namespace),
		connRegistry: shardmap.New[struct{}](16),
		cell:         status.New(RuntimeRunning),
	}
}

// NewNamespaceBuilder registers a namespace at path with cfg, rejecting a
// duplicate normalized path.
func (rt *Runtime) NewNamespaceBuilder(path string, cfg *Config) (*Namespace, error) {
	ns := NewNamespace(path, cfg)
	ns.onConnChange = func(id uint64, added bool) {
		if added {
			rt.connRegistry.Store(connKey(id), struct{}{})
		} else {
			rt.connRegistry.Delete(connKey(id))
		}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.namespaces[ns.Path()]; exists {
		return nil, ErrDuplicateNamespace
	}
	rt.namespaces[ns.Path()] = ns
	return ns, nil
}

// HasConnection reports whether id is currently tracked by the
// observational weak connection registry, across every namespace.
func (rt *Runtime) HasConnection(id uint64) bool {
	_, ok := rt.connRegistry.Load(connKey(id))
	return ok
}

// GetNamespace returns the namespace registered at the normalized path.
func (rt *Runtime) GetNamespace(path string) (*Namespace, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ns, ok := rt.namespaces[protocol.NormalizeNamespacePath(path)]
	return ns, ok
}

// NamespaceCount reports the number of registered namespaces.
func (rt *Runtime) NamespaceCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.namespaces)
}

// ConnectionCount sums live connections across every namespace.
func (rt *Runtime) ConnectionCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	total := 0
	for _, ns := range rt.namespaces {
		total += ns.ConnectionCount()
	}
	return total
}

// Emit fans an event out across every namespace's broadcast operator.
func (rt *Runtime) Emit(ctx context.Context, event string, data any) error {
	if !rt.cell.Is(RuntimeRunning) {
		return ErrRuntimeNotRunning
	}
	rt.mu.RLock()
	targets := make([]*Namespace, 0, len(rt.namespaces))
	for _, ns := range rt.namespaces {
		targets = append(targets, ns)
	}
	rt.mu.RUnlock()

	var g errgroup.Group
	for _, ns := range targets {
		ns := ns
		g.Go(func() error {
			return ns.Broadcast().Emit(ctx, event, data)
		})
	}
	return g.Wait()
}

// RemoveNamespace unregisters path and drives that namespace's shutdown.
func (rt *Runtime) RemoveNamespace(ctx context.Context, path string) error {
	norm := protocol.NormalizeNamespacePath(path)
	rt.mu.Lock()
	ns, ok := rt.namespaces[norm]
	if ok {
		delete(rt.namespaces, norm)
	}
	rt.mu.Unlock()
	if !ok {
		return ErrNamespaceNotFound
	}
	return ns.Shutdown(ctx)
}

// Shutdown transitions Running -> Stopping -> Stopped, awaiting every
// namespace's shutdown concurrently.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if err := rt.cell.TryTransition(RuntimeRunning, RuntimeStopping); err != nil {
		return nil
	}

	rt.mu.RLock()
	targets := make([]*Namespace, 0, len(rt.namespaces))
	for _, ns := range rt.namespaces {
		targets = append(targets, ns)
	}
	rt.mu.RUnlock()

	var g errgroup.Group
	for _, ns := range targets {
		ns := ns
		g.Go(func() error { return ns.Shutdown(ctx) })
	}
	err := g.Wait()

	rt.cell.Store(RuntimeStopped)
	return err
}

