// Package store provides the persistence backends the tagcache flushes
// into. All implementations satisfy [tagcache.Store], so backends can be
// swapped without changing application code.
//
//   - [NewMemory] — In-process map guarded by a mutex. Zero infrastructure;
//     lost on process restart. Doubles as the swappable fake the cache engine
//     is tested against.
//
//   - [NewSQLite] — Backed by a SQLite database using [modernc.org/sqlite]
//     (pure Go, no CGO). Value and tags are stored as JSON text, timestamps
//     as UnixNano integers. WAL mode is enabled, and batch inserts run in a
//     transaction so a batch is all-or-nothing.
//
//   - [NewRedis] — Backed by Redis using [github.com/redis/go-redis/v9].
//     Records are serialized with msgpack; tag sets, a per-key update-time
//     index, and a creation-time index make the contract's queries cheap.
//     The caller owns the [redis.Client] lifecycle; Close is a no-op.
//
//   - [NewSupabase] — Backed by a Supabase (PostgREST) table over HTTP.
//     Tag queries use the cs/ov array operators; missing credentials are the
//     one fatal configuration error of the system.
//
// The SQLite, Redis and Supabase backends apply a per-operation timeout
// ([DefaultQueryTimeout]) derived from the caller's context to every I/O
// operation.
package store
