package tagcache

import (
	"context"
	"time"
)

// Store is the persistence contract the cache flushes into. Implementations
// live in the store package: in-memory (the swappable test fake and an
// ephemeral backend), SQLite, Redis, and Supabase/PostgREST.
//
// All methods take a context; I/O-backed implementations apply their own
// per-operation timeouts derived from it.
type Store interface {
	// InsertBatch persists all records as one atomic batch. Either every
	// record is stored or none are — a partial batch is treated as failure.
	InsertBatch(ctx context.Context, records []Record) error

	// QueryByTags returns records matching the given tags. With matchAll
	// false the record must share at least one tag (OR); with matchAll true
	// its tag set must be a superset of the query (AND).
	QueryByTags(ctx context.Context, tags []string, matchAll bool) ([]Record, error)

	// GetByKey returns the record with the given key whose UpdatedAt is
	// newest, or found=false if no record has that key.
	GetByKey(ctx context.Context, key string) (Record, bool, error)

	// Update replaces the record's value and refreshes UpdatedAt. A nil tags
	// slice preserves the existing tags; a non-nil (possibly empty) slice
	// replaces them. Returns found=false if no record has that id.
	Update(ctx context.Context, id string, value map[string]any, tags []string, updatedAt time.Time) (bool, error)

	// DeleteOlderThan removes every record whose CreatedAt is before cutoff
	// and returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
