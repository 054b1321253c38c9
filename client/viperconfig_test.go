package client_test

import (
	"testing"
	"time"

	"github.com/momentics/wsio/client"
	"github.com/momentics/wsio/codec"
)

func TestLoadConfigFromViperAppliesEnvOverrides(t *testing.T) {
	t.Setenv("WSIO_CLIENT_NAMESPACE", "/chat")
	t.Setenv("WSIO_CLIENT_RECONNECTION_DELAY_MS", "250")

	cfg, err := client.LoadConfigFromViper(codec.JSON{})
	if err != nil {
		t.Fatalf("LoadConfigFromViper: %v", err)
	}
	if cfg.Namespace != "/chat" {
		t.Fatalf("Namespace = %q, want /chat", cfg.Namespace)
	}
	if cfg.ReconnectionDelay != 250*time.Millisecond {
		t.Fatalf("ReconnectionDelay = %v, want 250ms", cfg.ReconnectionDelay)
	}
	if cfg.RequestPath == "" {
		t.Fatalf("RequestPath should keep its default")
	}
}
