// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/wsio/protocol"
)

// AuthHandler validates the bytes carried by a client's Auth packet. It may
// inspect/decode them via codec. A non-nil return fails the handshake.
type AuthHandler func(ctx context.Context, data []byte, codec protocol.Codec) error

// Middleware runs after authentication (if any) and before OnConnect,
// bounded by MiddlewareExecutionTimeout. A non-nil return aborts
// activation and closes the connection.
type Middleware func(ctx context.Context, conn *Connection) error

// ConnectHandler runs once a connection is about to join the namespace,
// bounded by OnConnectHandlerTimeout. A non-nil return aborts activation.
type ConnectHandler func(ctx context.Context, conn *Connection) error

// ReadyHandler is invoked detached once a connection reaches Ready.
type ReadyHandler func(conn *Connection)

// CloseHandler is invoked once during cleanup, bounded by
// OnCloseHandlerTimeout.
type CloseHandler func(ctx context.Context, conn *Connection)

// Config holds the effective, immutable-after-registration configuration
// of one Namespace.
type Config struct {
	Codec protocol.Codec

	AuthHandler  AuthHandler
	Middlewares  []Middleware
	OnConnect    ConnectHandler
	OnReady      ReadyHandler
	OnClose      CloseHandler

	AuthPacketTimeout           time.Duration
	AuthHandlerTimeout          time.Duration
	MiddlewareExecutionTimeout  time.Duration
	OnConnectHandlerTimeout     time.Duration
	OnCloseHandlerTimeout       time.Duration

	// WriteBufferCap and WriteBufferChunk size the per-connection outbound
	// channel: capacity = clamp(WriteBufferCap/WriteBufferChunk, 64, 4096).
	WriteBufferCap   int
	WriteBufferChunk int

	// BroadcastConcurrencyLimit bounds how many targets a single
	// to(...).emit(...) call fans out to concurrently.
	BroadcastConcurrencyLimit int

	MaxFramePayload int64

	Logger *zap.Logger
}

// DefaultConfig returns a namespace configuration with the given codec, no
// auth, and conservative timeouts. Callers typically start from this and
// apply Option values.
func DefaultConfig(codec protocol.Codec) *Config {
	return &Config{
		Codec:                      codec,
		AuthPacketTimeout:          10 * time.Second,
		AuthHandlerTimeout:         5 * time.Second,
		MiddlewareExecutionTimeout: 5 * time.Second,
		OnConnectHandlerTimeout:    5 * time.Second,
		OnCloseHandlerTimeout:      5 * time.Second,
		WriteBufferCap:             256 * 1024,
		WriteBufferChunk:           4 * 1024,
		BroadcastConcurrencyLimit:  64,
		MaxFramePayload:            protocol.MaxFramePayload,
		Logger:                     zap.NewNop(),
	}
}

func (c *Config) outboundCapacity() int {
	if c.WriteBufferChunk <= 0 {
		return 64
	}
	n := c.WriteBufferCap / c.WriteBufferChunk
	return clamp(n, 64, 4096)
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

// Option configures a Config in a builder chain.
type Option func(*Config)

// WithAuth installs an auth handler; its presence makes the handshake
// require a client Auth packet.
func WithAuth(h AuthHandler) Option { return func(c *Config) { c.AuthHandler = h } }

// WithMiddleware appends middleware, run in registration order after auth.
func WithMiddleware(m ...Middleware) Option {
	return func(c *Config) { c.Middlewares = append(c.Middlewares, m...) }
}

// WithOnConnect installs the activation hook.
func WithOnConnect(h ConnectHandler) Option { return func(c *Config) { c.OnConnect = h } }

// WithOnReady installs the detached post-Ready hook.
func WithOnReady(h ReadyHandler) Option { return func(c *Config) { c.OnReady = h } }

// WithOnClose installs the cleanup hook.
func WithOnClose(h CloseHandler) Option { return func(c *Config) { c.OnClose = h } }

// WithTimeouts overrides the handshake/activation timeout budget.
func WithTimeouts(auth, authHandler, middleware, onConnect, onClose time.Duration) Option {
	return func(c *Config) {
		c.AuthPacketTimeout = auth
		c.AuthHandlerTimeout = authHandler
		c.MiddlewareExecutionTimeout = middleware
		c.OnConnectHandlerTimeout = onConnect
		c.OnCloseHandlerTimeout = onClose
	}
}

// WithWriteBuffer sets the outbound channel sizing inputs.
func WithWriteBuffer(capBytes, chunkBytes int) Option {
	return func(c *Config) { c.WriteBufferCap = capBytes; c.WriteBufferChunk = chunkBytes }
}

// WithBroadcastConcurrency bounds fan-out concurrency for the broadcast
// operator.
func WithBroadcastConcurrency(n int) Option {
	return func(c *Config) { c.BroadcastConcurrencyLimit = n }
}

// WithLogger installs a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(c *Config) { c.Logger = l } }
