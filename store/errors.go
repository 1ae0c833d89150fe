package store

import (
	"errors"

	"ataa/localbase/kv"
)

// ErrNotFound reports that no document with the requested id exists in the
// collection. It is an expected outcome, not an exceptional one.
var ErrNotFound = errors.New("document not found")

// ErrStorageFull is returned from the write path when the backing store
// rejects a write for capacity reasons. There is no automatic retry.
var ErrStorageFull = kv.ErrFull
