// File: server/viperconfig.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"time"

	"github.com/spf13/viper"

	"github.com/momentics/wsio/protocol"
)

// LoadConfigFromViper builds a Config from DefaultConfig(codec) overridden
// by any of the WSIO_SERVER_* environment variables below, read through a
// fresh viper instance. Handler hooks, middleware, and the logger are not
// expressible this way and must still be set with Option values after
// this call returns.
//
//	WSIO_SERVER_AUTH_PACKET_TIMEOUT_MS
//	WSIO_SERVER_AUTH_HANDLER_TIMEOUT_MS
//	WSIO_SERVER_MIDDLEWARE_TIMEOUT_MS
//	WSIO_SERVER_ON_CONNECT_TIMEOUT_MS
//	WSIO_SERVER_ON_CLOSE_TIMEOUT_MS
//	WSIO_SERVER_WRITE_BUFFER_CAP
//	WSIO_SERVER_WRITE_BUFFER_CHUNK
//	WSIO_SERVER_BROADCAST_CONCURRENCY
func LoadConfigFromViper(codec protocol.Codec) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WSIO_SERVER")
	v.AutomaticEnv()

	for _, key := range []string{
		"auth_packet_timeout_ms",
		"auth_handler_timeout_ms",
		"middleware_timeout_ms",
		"on_connect_timeout_ms",
		"on_close_timeout_ms",
		"write_buffer_cap",
		"write_buffer_chunk",
		"broadcast_concurrency",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig(codec)
	if ms := v.GetInt64("auth_packet_timeout_ms"); ms > 0 {
		cfg.AuthPacketTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("auth_handler_timeout_ms"); ms > 0 {
		cfg.AuthHandlerTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("middleware_timeout_ms"); ms > 0 {
		cfg.MiddlewareExecutionTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("on_connect_timeout_ms"); ms > 0 {
		cfg.OnConnectHandlerTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("on_close_timeout_ms"); ms > 0 {
		cfg.OnCloseHandlerTimeout = time.Duration(ms) * time.Millisecond
	}
	if n := v.GetInt("write_buffer_cap"); n > 0 {
		cfg.WriteBufferCap = n
	}
	if n := v.GetInt("write_buffer_chunk"); n > 0 {
		cfg.WriteBufferChunk = n
	}
	if n := v.GetInt("broadcast_concurrency"); n > 0 {
		cfg.BroadcastConcurrencyLimit = n
	}
	return cfg, nil
}
