// Package shardmap implements a sharded, lock-striped concurrent map used
// for the namespace connection table and room membership index, so point
// updates (join/leave/insert/remove) don't contend on a single mutex under
// high connection or room churn.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shardmap

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 16

// Map is a sharded map keyed by string. The zero value is not usable;
// construct with New.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint32
}

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// New constructs a Map with a power-of-two shard count: shardHint rounded
// up to a power of two, or defaultShards when shardHint is not positive.
func New[V any](shardHint int) *Map[V] {
	if shardHint <= 0 {
		shardHint = defaultShards
	}
	n := nextPow2(uint32(shardHint))
	shards := make([]*shard[V], n)
	for i := range shards {
		shards[i] = &shard[V]{m: make(map[string]V)}
	}
	return &Map[V]{shards: shards, mask: n - 1}
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()&m.mask]
}

// Store inserts or overwrites key.
func (m *Map[V]) Store(key string, v V) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	sh.m[key] = v
	sh.mu.Unlock()
}

// Load fetches key, reporting whether it was present.
func (m *Map[V]) Load(key string) (V, bool) {
	sh := m.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.m[key]
	return v, ok
}

// Delete removes key if present; a no-op otherwise.
func (m *Map[V]) Delete(key string) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	delete(sh.m, key)
	sh.mu.Unlock()
}

// LoadOrStore returns the existing value for key if present; otherwise it
// stores and returns v.
func (m *Map[V]) LoadOrStore(key string, v V) (actual V, loaded bool) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.m[key]; ok {
		return existing, true
	}
	sh.m[key] = v
	return v, false
}

// Len returns the total number of entries across all shards. Callers
// needing a perfectly consistent snapshot should not rely on this under
// concurrent writers; it is intended for metrics and tests.
func (m *Map[V]) Len() int {
	total := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

// Range calls fn for every entry. fn must not call back into the same Map.
func (m *Map[V]) Range(fn func(key string, v V) bool) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		snapshot := make(map[string]V, len(sh.m))
		for k, v := range sh.m {
			snapshot[k] = v
		}
		sh.mu.RUnlock()
		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}

// Keys returns a snapshot of all keys currently present.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Range(func(k string, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
