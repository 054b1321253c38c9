// File: client/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/wsio/protocol"
)

// AuthHandler produces the bytes carried on the client's Auth packet when
// the server's Init announces requires_auth = true.
type AuthHandler func(ctx context.Context) ([]byte, error)

// ReadyHandler is invoked detached once a connection reaches Ready.
type ReadyHandler func(conn *Connection)

// Config is the effective, immutable-after-Connect configuration of one
// client Runtime.
type Config struct {
	Codec protocol.Codec

	// RequestPath and Namespace compose the rewritten dial URL, per §6:
	// ws://host:port/<RequestPath>?namespace=/<Namespace>.
	RequestPath string
	Namespace   string

	AuthHandler      AuthHandler
	OnConnectionReady ReadyHandler

	InitPacketTimeout  time.Duration
	ReadyPacketTimeout time.Duration
	AuthHandlerTimeout time.Duration

	ReconnectionDelay time.Duration

	// OutboundQueueCap bounds the event-flush queue's pending message
	// count.
	OutboundQueueCap int

	Logger *zap.Logger
}

// DefaultConfig returns a client configuration with the given codec, no
// auth, the default request path, and a 1s reconnection delay.
func DefaultConfig(codec protocol.Codec) *Config {
	return &Config{
		Codec:              codec,
		RequestPath:        protocol.DefaultRequestPath,
		InitPacketTimeout:  10 * time.Second,
		ReadyPacketTimeout: 10 * time.Second,
		AuthHandlerTimeout: 5 * time.Second,
		ReconnectionDelay:  time.Second,
		OutboundQueueCap:   1024,
		Logger:             zap.NewNop(),
	}
}

// Option configures a Config in a builder chain.
type Option func(*Config)

// WithNamespace sets the target namespace path, e.g. "/chat".
func WithNamespace(ns string) Option { return func(c *Config) { c.Namespace = ns } }

// WithRequestPath overrides the default "/ws.io" endpoint.
func WithRequestPath(p string) Option { return func(c *Config) { c.RequestPath = p } }

// WithAuth installs the client's auth handler.
func WithAuth(h AuthHandler) Option { return func(c *Config) { c.AuthHandler = h } }

// WithOnConnectionReady installs the detached post-Ready hook.
func WithOnConnectionReady(h ReadyHandler) Option {
	return func(c *Config) { c.OnConnectionReady = h }
}

// WithReconnectionDelay overrides the reconnect-loop sleep.
func WithReconnectionDelay(d time.Duration) Option {
	return func(c *Config) { c.ReconnectionDelay = d }
}

// WithTimeouts overrides the handshake timeout budget.
func WithTimeouts(initT, readyT, authT time.Duration) Option {
	return func(c *Config) {
		c.InitPacketTimeout = initT
		c.ReadyPacketTimeout = readyT
		c.AuthHandlerTimeout = authT
	}
}

// WithOutboundQueueCap bounds the event-flush queue.
func WithOutboundQueueCap(n int) Option { return func(c *Config) { c.OutboundQueueCap = n } }

// WithLogger installs a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(c *Config) { c.Logger = l } }
