// Package kv defines the backing store and relay contracts the document
// store is built on, plus their Redis implementation. The backing store
// holds named blobs (one per collection); the relay carries change events
// between processes sharing the same backing store.
package kv

import (
	"context"
	"errors"
)

// EventTypeUpdate is the only event type carried by the relay.
const EventTypeUpdate = "collection:update"

// Event announces that a collection's blob was rewritten by some process.
type Event struct {
	Type       string `json:"type"`
	Collection string `json:"collectionName"`
	// Origin identifies the store instance that performed the write.
	// A store must drop events carrying its own origin: it already
	// notified its local subscribers synchronously at write time.
	Origin string `json:"origin,omitempty"`
}

// ErrFull reports that the backing store rejected a write for capacity
// reasons. Retrying without freeing space will fail identically.
var ErrFull = errors.New("backing store full")

// Backing is the durable named-blob store. A missing key is not an error:
// Get reports presence through its second return value.
type Backing interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Relay propagates change events to sibling processes. Delivery is
// fire-and-forget and eventually consistent; a listener re-reads the named
// collection rather than trusting any payload beyond its name.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
	// Listen invokes handler for every event published by any process,
	// including this one, until the returned stop function is called.
	Listen(handler func(Event)) (stop func(), err error)
}
