package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// readCollection loads and decodes a collection blob. A missing key reads
// as an empty sequence with exists=false; an unparseable blob also reads
// as empty (logged, never surfaced) so the store self-heals on the next
// successful write. Only backing store failures are returned.
func (s *Store) readCollection(ctx context.Context, collection string) ([]Document, bool, error) {
	raw, found, err := s.backing.Get(ctx, s.key(collection))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		s.logger.Warn("corrupt collection blob, treating as empty",
			"collection", collection, "err", err)
		return nil, true, nil
	}
	return docs, true, nil
}

// writeCollection serializes the full sequence, replaces the stored blob
// and fires change notification. The whole collection is the unit of
// transaction: concurrent writers race on the final Set and the last blob
// written wins.
func (s *Store) writeCollection(ctx context.Context, collection string, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	if err := s.backing.Set(ctx, s.key(collection), raw); err != nil {
		return err
	}
	s.notify(ctx, collection)
	return nil
}
