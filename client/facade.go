// File: client/facade.go
// Client is the single public entry point: build a Config, construct a
// Client, Connect, register handlers with On, Emit events, Disconnect.
// Everything else in this package is driven through Runtime and
// Connection internally.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import "context"

// Client wraps a Runtime behind the small surface applications use.
type Client struct {
	rt *Runtime
}

// New constructs a Client dialing endpoint (e.g. "ws://host:port") with
// the given base configuration built by DefaultConfig plus Option values.
func New(endpoint string, cfg *Config, opts ...Option) *Client {
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{rt: NewRuntime(endpoint, cfg)}
}

// SetDialer overrides the transport dialer; used by tests to substitute
// an in-memory pipe for TCP.
func (c *Client) SetDialer(d Dialer) { c.rt.SetDialer(d) }

// Connect starts the reconnect loop and the event-flush task.
func (c *Client) Connect(ctx context.Context) error { return c.rt.Connect(ctx) }

// Disconnect wakes the reconnect loop, closes the current connection, and
// waits for teardown to complete.
func (c *Client) Disconnect() { c.rt.Disconnect() }

// Emit enqueues event to the flush queue; delivery happens at the next
// Ready transition if the session is mid-reconnect.
func (c *Client) Emit(event string, data any) error { return c.rt.Emit(event, data) }

// On registers a handler for event, typed on its payload.
func On[T any](c *Client, event string, handler func(T)) uint64 {
	return RuntimeOn(c.rt, event, handler)
}
