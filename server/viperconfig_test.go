package server_test

import (
	"testing"
	"time"

	"github.com/momentics/wsio/codec"
	"github.com/momentics/wsio/server"
)

func TestLoadConfigFromViperAppliesEnvOverrides(t *testing.T) {
	t.Setenv("WSIO_SERVER_AUTH_PACKET_TIMEOUT_MS", "2500")
	t.Setenv("WSIO_SERVER_BROADCAST_CONCURRENCY", "8")

	cfg, err := server.LoadConfigFromViper(codec.JSON{})
	if err != nil {
		t.Fatalf("LoadConfigFromViper: %v", err)
	}
	if cfg.AuthPacketTimeout != 2500*time.Millisecond {
		t.Fatalf("AuthPacketTimeout = %v, want 2.5s", cfg.AuthPacketTimeout)
	}
	if cfg.BroadcastConcurrencyLimit != 8 {
		t.Fatalf("BroadcastConcurrencyLimit = %d, want 8", cfg.BroadcastConcurrencyLimit)
	}
	if cfg.WriteBufferCap != 256*1024 {
		t.Fatalf("WriteBufferCap should keep its default, got %d", cfg.WriteBufferCap)
	}
}
