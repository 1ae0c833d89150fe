package store

import (
	"context"
	"time"

	"ataa/localbase/kv"
)

// Subscribe registers a live query over a collection. The callback is
// invoked once immediately with the current snapshot, then again after
// every change to the collection, whether written by this process or
// relayed from a sibling. The returned disposer deregisters the callback.
//
// For a write performed by this process the callback fires synchronously,
// after the write is durable and before the write call returns. Relayed
// changes fire asynchronously on the relay goroutine; subscribers see the
// final state of a cross-process race, not every intermediate state.
func (s *Store) Subscribe(ctx context.Context, collection string, cb func([]Document)) func() {
	s.mu.Lock()
	set, ok := s.subs[collection]
	if !ok {
		set = make(map[int]func([]Document))
		s.subs[collection] = set
	}
	id := s.nextSub
	s.nextSub++
	set[id] = cb
	s.mu.Unlock()

	cb(s.snapshot(ctx, collection))

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subs[collection]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.subs, collection)
			}
		}
	}
}

// notify fires local subscribers for a committed write, then broadcasts
// the change to sibling processes. Relay failures are logged, not
// surfaced: the local write already succeeded and siblings converge on
// their next read.
func (s *Store) notify(ctx context.Context, collection string) {
	s.fire(ctx, collection)

	if s.relay == nil {
		return
	}
	ev := kv.Event{Type: kv.EventTypeUpdate, Collection: collection, Origin: s.origin}
	if err := s.relay.Publish(ctx, ev); err != nil {
		s.logger.Warn("relay publish failed", "collection", collection, "err", err)
	}
}

// consumeRelay handles an event from a sibling process: re-read the named
// collection and re-fire local subscribers. Events carrying our own origin
// are dropped; this process already fired synchronously at write time.
func (s *Store) consumeRelay(ev kv.Event) {
	if ev.Origin == s.origin {
		return
	}
	s.fire(context.Background(), ev.Collection)
}

// fire invokes every subscriber of a collection with a fresh snapshot.
// Subscribers are copied out under the lock and invoked outside it, so a
// callback may itself subscribe or write without deadlocking.
func (s *Store) fire(ctx context.Context, collection string) {
	s.mu.Lock()
	set := s.subs[collection]
	callbacks := make([]func([]Document), 0, len(set))
	for _, cb := range set {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	snapshot := s.snapshot(ctx, collection)
	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// snapshot reads a collection for notification delivery. Backing failures
// degrade to an empty snapshot here: notification is advisory and the
// subscriber's next read will surface a persistent outage.
func (s *Store) snapshot(ctx context.Context, collection string) []Document {
	docs, _, err := s.readCollection(ctx, collection)
	if err != nil {
		s.logger.Warn("snapshot read failed", "collection", collection, "err", err)
		return []Document{}
	}
	return cloneAll(docs)
}

// startPolling is the fallback when no relay is available: every interval,
// re-read each collection that has subscribers and fire unconditionally.
// Cross-process latency is bounded by one interval and idle re-fires are
// accepted.
func (s *Store) startPolling(interval time.Duration) {
	s.stopPoll = make(chan struct{})
	s.pollDone = make(chan struct{})

	go func() {
		defer close(s.pollDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopPoll:
				return
			case <-ticker.C:
				s.mu.Lock()
				collections := make([]string, 0, len(s.subs))
				for name := range s.subs {
					collections = append(collections, name)
				}
				s.mu.Unlock()
				for _, name := range collections {
					s.fire(context.Background(), name)
				}
			}
		}
	}()
}
