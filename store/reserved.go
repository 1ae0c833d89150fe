package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Reserved keys hold single documents outside the collection model (the
// session user). They are not prefixed, not relayed and not subscribable.

// ReservedDoc reads a single document stored under a reserved key. Absent
// and unparseable both read as nil.
func (s *Store) ReservedDoc(ctx context.Context, key string) (Document, error) {
	raw, found, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("corrupt reserved document, treating as absent",
			"key", key, "err", err)
		return nil, nil
	}
	return doc, nil
}

// SetReservedDoc replaces the document under a reserved key.
func (s *Store) SetReservedDoc(ctx context.Context, key string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode reserved %s: %w", key, err)
	}
	return s.backing.Set(ctx, key, raw)
}

// DeleteReserved removes a reserved key. Deleting an absent key is a
// no-op.
func (s *Store) DeleteReserved(ctx context.Context, key string) error {
	return s.backing.Delete(ctx, key)
}
