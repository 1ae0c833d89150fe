package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis("redis://"+mr.Addr(), "test_channel")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestGetMissingKey(t *testing.T) {
	r := newTestRedis(t)

	value, found, err := r.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Errorf("expected missing key, got %q", value)
	}
}

func TestSetGetDelete(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "k", []byte(`["blob"]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found, err := r.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != `["blob"]` {
		t.Errorf("round-trip failed: found=%v value=%q", found, value)
	}

	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, found, err = r.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if found {
		t.Error("key still present after delete")
	}

	// Deleting an absent key is a no-op.
	if err := r.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestPublishListen(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := NewRedis("redis://"+mr.Addr(), "test_channel")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer a.Close()
	b, err := NewRedis("redis://"+mr.Addr(), "test_channel")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer b.Close()

	events := make(chan Event, 1)
	stop, err := b.Listen(func(ev Event) { events <- ev })
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer stop()

	ev := Event{Type: EventTypeUpdate, Collection: "items", Origin: "origin-a"}
	if err := a.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-events:
		if got != ev {
			t.Errorf("expected %+v, got %+v", ev, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestListenIgnoresMalformedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis("redis://"+mr.Addr(), "test_channel")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer r.Close()

	events := make(chan Event, 2)
	stop, err := r.Listen(func(ev Event) { events <- ev })
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer stop()

	ctx := context.Background()
	// Garbage and wrong-typed payloads must be dropped silently.
	mr.Publish("test_channel", "not json")
	mr.Publish("test_channel", `{"type":"something:else","collectionName":"items"}`)
	if err := r.Publish(ctx, Event{Type: EventTypeUpdate, Collection: "items"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-events:
		if got.Collection != "items" || got.Type != EventTypeUpdate {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event never delivered")
	}
	select {
	case got := <-events:
		t.Errorf("malformed payload delivered: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetMapsOOMToErrFull(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis("redis://"+mr.Addr(), "test_channel")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer r.Close()

	mr.SetError("OOM command not allowed when used memory > 'maxmemory'.")
	if err := r.Set(context.Background(), "k", []byte("v")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull for a maxmemory rejection, got %v", err)
	}

	// Other failures must not masquerade as a full store.
	mr.SetError("WRONGTYPE Operation against a key holding the wrong kind of value")
	if err := r.Set(context.Background(), "k", []byte("v")); err == nil || errors.Is(err, ErrFull) {
		t.Errorf("non-capacity failure mapped to ErrFull: %v", err)
	}
}

func TestBadURL(t *testing.T) {
	if _, err := NewRedis("not-a-url", "c"); err == nil {
		t.Error("expected error for malformed redis url")
	}
}
