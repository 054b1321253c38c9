package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momentics/wsio/codec"
	"github.com/momentics/wsio/registry"
)

func TestDispatchFansOutToAllHandlers(t *testing.T) {
	r := registry.New()
	var wg sync.WaitGroup
	wg.Add(2)
	var got1, got2 string
	registry.On(r, "greet", func(s string) { defer wg.Done(); got1 = s })
	registry.On(r, "greet", func(s string) { defer wg.Done(); got2 = s })

	data, err := codec.JSON{}.EncodePayload("hi")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r.Dispatch(context.Background(), "greet", data, codec.JSON{})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers did not complete in time")
	}
	if got1 != "hi" || got2 != "hi" {
		t.Fatalf("got %q, %q; want hi, hi", got1, got2)
	}
}

func TestDispatchUnknownEventDrops(t *testing.T) {
	r := registry.New()
	// Must not panic or block.
	r.Dispatch(context.Background(), "nope", []byte("x"), codec.JSON{})
}

func TestOnDuplicateTypePanics(t *testing.T) {
	r := registry.New()
	registry.On(r, "e", func(v uint8) {})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate-type registration")
		}
	}()
	registry.On(r, "e", func(v string) {})
}

func TestOffByHandlerIDDropsEventWhenEmpty(t *testing.T) {
	r := registry.New()
	id := registry.On(r, "e", func(v int) {})
	if !r.Has("e") {
		t.Fatal("expected event registered")
	}
	r.OffByHandlerID("e", id)
	if r.Has("e") {
		t.Fatal("expected event entry dropped after last handler removed")
	}
}
