// Package idgen provides the process-wide monotonic connection-id counter
// used by the server, plus session-id generation for the wire-visible
// identifier carried on the server's Init packet.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package idgen

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Counter is a thread-safe monotonically increasing id allocator. The zero
// value starts at 1 after the first Next call.
type Counter struct {
	n atomic.Uint64
}

// Next returns the next id in the sequence, starting at 1.
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// NewSessionID generates the externally-visible session identifier sent on
// the server's Init packet. It is independent of the internal numeric
// connection id, which is never exposed on the wire.
func NewSessionID() string {
	return uuid.NewString()
}
