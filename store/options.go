package store

import "time"

// DefaultQueryTimeout is the per-operation timeout for store backends that
// perform I/O (SQLite, Redis, Supabase). Prevents indefinite hangs on slow
// or unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// config holds the resolved configuration for a store implementation.
type config struct {
	queryTimeout time.Duration
	prefix       string
	table        string
}

// Option configures a store backend.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		queryTimeout: DefaultQueryTimeout,
		table:        DefaultSupabaseTable,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed stores.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// WithPrefix sets the key prefix for namespacing. Applies to the Redis
// backend. Defaults to empty (no prefix).
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithTable sets the table name for the Supabase backend. Defaults to
// DefaultSupabaseTable.
func WithTable(t string) Option {
	return func(c *config) {
		if t != "" {
			c.table = t
		}
	}
}
