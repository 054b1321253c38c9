// File: client/viperconfig.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"time"

	"github.com/spf13/viper"

	"github.com/momentics/wsio/protocol"
)

// LoadConfigFromViper builds a Config from DefaultConfig(codec) overridden
// by any of the WSIO_CLIENT_* environment variables below. AuthHandler and
// OnConnectionReady are not expressible this way and must still be set
// with Option values after this call returns.
//
//	WSIO_CLIENT_NAMESPACE
//	WSIO_CLIENT_REQUEST_PATH
//	WSIO_CLIENT_INIT_PACKET_TIMEOUT_MS
//	WSIO_CLIENT_READY_PACKET_TIMEOUT_MS
//	WSIO_CLIENT_AUTH_HANDLER_TIMEOUT_MS
//	WSIO_CLIENT_RECONNECTION_DELAY_MS
//	WSIO_CLIENT_OUTBOUND_QUEUE_CAP
func LoadConfigFromViper(codec protocol.Codec) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WSIO_CLIENT")
	v.AutomaticEnv()

	for _, key := range []string{
		"namespace",
		"request_path",
		"init_packet_timeout_ms",
		"ready_packet_timeout_ms",
		"auth_handler_timeout_ms",
		"reconnection_delay_ms",
		"outbound_queue_cap",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig(codec)
	if ns := v.GetString("namespace"); ns != "" {
		cfg.Namespace = ns
	}
	if p := v.GetString("request_path"); p != "" {
		cfg.RequestPath = p
	}
	if ms := v.GetInt64("init_packet_timeout_ms"); ms > 0 {
		cfg.InitPacketTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("ready_packet_timeout_ms"); ms > 0 {
		cfg.ReadyPacketTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("auth_handler_timeout_ms"); ms > 0 {
		cfg.AuthHandlerTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := v.GetInt64("reconnection_delay_ms"); ms > 0 {
		cfg.ReconnectionDelay = time.Duration(ms) * time.Millisecond
	}
	if n := v.GetInt("outbound_queue_cap"); n > 0 {
		cfg.OutboundQueueCap = n
	}
	return cfg, nil
}
