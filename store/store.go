// Package store implements a local reactive document store: named
// collections of JSON documents persisted as whole blobs in a shared
// key-value backing, with synchronous change notification inside the
// process and a relay carrying change events to sibling processes.
//
// The unit of storage and of conflict resolution is the whole collection:
// every write re-serializes the full document sequence and replaces the
// stored blob, so the last writer to a collection wins outright.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"ataa/localbase/config"
	"ataa/localbase/kv"
	"ataa/localbase/sanitize"
)

// Options configures a Store. The zero value is usable with a non-nil
// Backing: no relay, no polling, default prefix and text limit.
type Options struct {
	// Relay propagates change events to sibling processes. When nil the
	// store is local-only unless PollInterval is set.
	Relay kv.Relay
	// Prefix namespaces collection keys in the backing store.
	Prefix string
	// MaxTextLen bounds sanitized string fields on the write path.
	MaxTextLen int
	// PollInterval enables the polling fallback: subscribed collections
	// are re-read and re-fired unconditionally every interval. Only
	// meaningful when Relay is nil.
	PollInterval time.Duration
	Logger       *log.Logger
}

// Store is the document store handle. One Store per process; all methods
// are safe for concurrent use.
type Store struct {
	backing kv.Backing
	relay   kv.Relay
	prefix  string
	maxText int
	// origin identifies this store instance on the relay so it can drop
	// echoes of its own writes.
	origin string
	logger *log.Logger

	mu      sync.Mutex
	subs    map[string]map[int]func([]Document)
	nextSub int

	stopRelay func()
	stopPoll  chan struct{}
	pollDone  chan struct{}
}

// New builds a Store over an existing backing. The relay subscription, if
// any, is live when New returns.
func New(backing kv.Backing, opts Options) (*Store, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ataa_db_"
	}
	maxText := opts.MaxTextLen
	if maxText <= 0 {
		maxText = sanitize.DefaultMaxLen
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Store{
		backing: backing,
		relay:   opts.Relay,
		prefix:  prefix,
		maxText: maxText,
		origin:  uuid.NewString(),
		logger:  logger,
		subs:    make(map[string]map[int]func([]Document)),
	}

	if s.relay != nil {
		stop, err := s.relay.Listen(s.consumeRelay)
		if err != nil {
			return nil, fmt.Errorf("listen on relay: %w", err)
		}
		s.stopRelay = stop
	} else if opts.PollInterval > 0 {
		s.startPolling(opts.PollInterval)
	}

	return s, nil
}

// Open connects to the configured Redis backing, wires the relay (or the
// polling fallback when cfg.PollInterval is set) and seeds demo data into
// a fresh backing store.
func Open(ctx context.Context, cfg config.Config) (*Store, error) {
	backing, err := kv.NewRedis(cfg.RedisURL, cfg.ChannelName)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Prefix:     cfg.StoragePrefix,
		MaxTextLen: cfg.MaxTextLen,
	}
	if cfg.PollInterval > 0 {
		opts.PollInterval = cfg.PollInterval
	} else {
		opts.Relay = backing
	}

	s, err := New(backing, opts)
	if err != nil {
		backing.Close()
		return nil, err
	}
	if err := s.Seed(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	return s, nil
}

// Close tears down the relay subscription and the backing connection.
// Registered subscribers are discarded.
func (s *Store) Close() error {
	if s.stopRelay != nil {
		s.stopRelay()
	}
	if s.stopPoll != nil {
		close(s.stopPoll)
		<-s.pollDone
	}
	s.mu.Lock()
	s.subs = make(map[string]map[int]func([]Document))
	s.mu.Unlock()
	return s.backing.Close()
}

// GetAll returns a point-in-time snapshot of the collection. A collection
// that has never been written reads as empty, not as an error.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Document, error) {
	docs, _, err := s.readCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	return cloneAll(docs), nil
}

// GetOne returns the document with the given id, or ErrNotFound.
func (s *Store) GetOne(ctx context.Context, collection, id string) (Document, error) {
	docs, _, err := s.readCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if i := indexByID(docs, id); i >= 0 {
		return docs[i].Clone(), nil
	}
	return nil, ErrNotFound
}

// AddOne sanitizes the payload, appends it to the collection and returns
// its id. A supplied id is kept only while no document in the collection
// carries it; an empty or already-taken id is replaced with a fresh one,
// so ids stay unique within the collection.
func (s *Store) AddOne(ctx context.Context, collection string, payload Document) (string, error) {
	docs, _, err := s.readCollection(ctx, collection)
	if err != nil {
		return "", err
	}

	doc := s.sanitized(payload)
	id := doc.ID()
	if id == "" || indexByID(docs, id) >= 0 {
		id = uuid.NewString()
		doc["id"] = id
	}
	docs = append(docs, doc)
	if err := s.writeCollection(ctx, collection, docs); err != nil {
		return "", err
	}
	return id, nil
}

// SetOne merges the sanitized payload into the document with the given id
// (shallow field overwrite, id preserved), or inserts it with the id
// forced when no such document exists.
func (s *Store) SetOne(ctx context.Context, collection, id string, payload Document) error {
	docs, _, err := s.readCollection(ctx, collection)
	if err != nil {
		return err
	}
	return s.merge(ctx, collection, id, payload, docs)
}

// UpdateOne has SetOne's merge semantics but is a silent no-op when the
// collection has never been written. Callers must not rely on it creating
// a collection without a prior document.
func (s *Store) UpdateOne(ctx context.Context, collection, id string, payload Document) error {
	docs, exists, err := s.readCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.merge(ctx, collection, id, payload, docs)
}

func (s *Store) merge(ctx context.Context, collection, id string, payload Document, docs []Document) error {
	doc := s.sanitized(payload)

	index := indexByID(docs, id)
	if index >= 0 {
		merged := docs[index].Clone()
		for field, value := range doc {
			merged[field] = value
		}
		merged["id"] = id
		docs[index] = merged
	} else {
		doc["id"] = id
		docs = append(docs, doc)
	}

	return s.writeCollection(ctx, collection, docs)
}

// DeleteOne removes the document with the given id. Deleting an absent
// document is a no-op, not an error.
func (s *Store) DeleteOne(ctx context.Context, collection, id string) error {
	docs, exists, err := s.readCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	kept := docs[:0]
	for _, doc := range docs {
		if doc.ID() != id {
			kept = append(kept, doc)
		}
	}
	return s.writeCollection(ctx, collection, kept)
}

func (s *Store) sanitized(payload Document) Document {
	cleaned := sanitize.Deep(map[string]any(payload), s.maxText)
	return Document(cleaned.(map[string]any))
}

func (s *Store) key(collection string) string {
	return s.prefix + collection
}

func indexByID(docs []Document, id string) int {
	for i, doc := range docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}
