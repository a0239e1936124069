// Package tagcache implements a write-batching, tag-indexed record cache
// with pluggable persistence backends.
//
// # Model
//
// A [Record] couples a non-unique Key, an arbitrary JSON-serializable Value,
// and a set of Tags under an immutable UUID. Records are created with
// [Cache.Add], held in an in-memory pending queue, and persisted to a
// [Store] when the queue reaches the batch size (or on an explicit
// [Cache.Flush]). Reads go straight to the store: [Cache.QueryByTags] for
// categorical lookup (any-of or all-of), [Cache.GetByKey] for latest-wins
// resolution of a key, plus [Cache.UpdateItem] and [Cache.CleanupOlderThan]
// for in-place mutation and age-based eviction.
//
// # No silent loss
//
// A flush whose store write fails diverts the entire batch to a timestamped,
// write-once JSON backup file and clears the queue. There is no automatic
// retry — the design is fail fast, recover manually: an operator inspects
// the file and re-submits it with [Cache.Recover] (or the recover CLI
// command). After any flush the pending queue is empty, whether the batch
// reached the store or the disk.
//
// # Error handling
//
// Only construction can fail hard ([ErrNilStore]) — the store-touching
// operations degrade instead of raising. Flush reports through
// [FlushResult.Status], queries return empty results, updates return false,
// cleanup returns zero; each logs the underlying store error. Callers branch
// on return values, not error types.
//
// # Concurrency
//
// The cache is single-writer by design. The pending queue has no locking
// discipline; one producer owns a cache instance, or callers serialize
// externally. The store is the only shared resource and each backend is
// assumed to serialize its own writes.
package tagcache
