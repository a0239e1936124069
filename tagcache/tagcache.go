package tagcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentkit/tagcache/logger"
)

// DefaultBatchSize is the pending-queue threshold that triggers an automatic
// flush when [WithBatchSize] is not used.
const DefaultBatchSize = 10

// DefaultBackupDir is where failed-flush backup files are written when
// [WithBackupDir] is not used.
const DefaultBackupDir = "."

// ErrNilStore is returned by New when no store is supplied. This is the one
// fatal configuration error — every runtime fault degrades to a result value
// instead.
var ErrNilStore = errors.New("tagcache: store is required")

// FlushStatus classifies the outcome of a flush.
type FlushStatus string

const (
	// FlushNoop means the pending queue was empty; the store was not contacted.
	FlushNoop FlushStatus = "noop"
	// Flushed means the batch was persisted to the store.
	Flushed FlushStatus = "flushed"
	// FlushBackup means the store write failed and the batch was written to a
	// local backup file instead.
	FlushBackup FlushStatus = "backup"
)

// FlushResult reports what a flush did. Callers check Status rather than
// handling errors: a failed store write is not an error to the caller, it is
// a batch diverted to BackupFile for manual recovery.
type FlushResult struct {
	Status     FlushStatus
	Processed  int
	FlushedAt  time.Time
	BackupFile string // set when Status is FlushBackup
	Err        error  // the store error, set when Status is FlushBackup
}

type config struct {
	batchSize int
	backupDir string
}

// Option configures a Cache.
type Option func(*config)

// WithBatchSize sets the pending-queue length that triggers an automatic
// flush during Add. Defaults to DefaultBatchSize; values < 1 are ignored.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.batchSize = n
		}
	}
}

// WithBackupDir sets the directory failed-flush backup files are written to.
// Defaults to the current directory.
func WithBackupDir(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.backupDir = dir
		}
	}
}

// Cache buffers records in memory and persists them to a Store in
// fixed-size batches. A flush that fails writes the whole batch to a local
// JSON backup file so nothing is silently lost; the queue is cleared either
// way and recovery is a manual step (see ReadBackup).
//
// Cache is single-writer: the pending queue is not locked, and concurrent
// callers must serialize access externally. Reads (QueryByTags, GetByKey)
// only see flushed records.
type Cache struct {
	store   Store
	log     logger.Logger
	cfg     config
	pending []Record
}

// New returns a Cache flushing into store. A nil store is a fatal
// configuration error; a nil log defaults to a console logger.
func New(store Store, log logger.Logger, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if log == nil {
		log = logger.NewConsoleLogger()
	}
	cfg := config{
		batchSize: DefaultBatchSize,
		backupDir: DefaultBackupDir,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		store: store,
		log:   log.WithPrefix("[tagcache]"),
		cfg:   cfg,
	}, nil
}

// Add buffers a new record and returns its id immediately; persistence is
// deferred to the next flush. If the append fills the queue to the batch
// size, Add flushes synchronously before returning — a failed flush still
// does not fail Add (the batch lands in a backup file).
//
// An empty key is a programmer error and the only way Add fails.
func (c *Cache) Add(ctx context.Context, key string, value map[string]any, tags []string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("tagcache: key is required")
	}
	rec := newRecord(key, value, tags)
	c.pending = append(c.pending, rec)
	c.log.Trace("queued record %s key=%s (%d pending)", rec.ID, rec.Key, len(c.pending))
	if len(c.pending) >= c.cfg.batchSize {
		c.Flush(ctx)
	}
	return rec.ID, nil
}

// Flush persists the entire pending queue as one atomic batch. On an empty
// queue it is a no-op and the store is not contacted. On store failure the
// batch is written verbatim to a timestamped backup file. Either way the
// pending queue is empty when Flush returns.
func (c *Cache) Flush(ctx context.Context) FlushResult {
	if len(c.pending) == 0 {
		return FlushResult{Status: FlushNoop}
	}
	batch := c.pending
	c.pending = nil

	if err := c.store.InsertBatch(ctx, batch); err != nil {
		path, backupErr := writeBackup(c.cfg.backupDir, batch)
		if backupErr != nil {
			// Both the store and the local disk failed. The batch is gone;
			// log loudly with enough context to reconstruct it from logs.
			c.log.Error("flush failed (%v) and backup write failed (%v): %d records lost", err, backupErr, len(batch))
			return FlushResult{Status: FlushBackup, Err: errors.Join(err, backupErr)}
		}
		c.log.Warn("flush of %d records failed, wrote backup %s: %v", len(batch), path, err)
		return FlushResult{Status: FlushBackup, Processed: len(batch), BackupFile: path, Err: err}
	}

	now := time.Now().UTC()
	c.log.Debug("flushed %d records", len(batch))
	return FlushResult{Status: Flushed, Processed: len(batch), FlushedAt: now}
}

// QueryByTags returns flushed records matching tags: any-of when matchAll is
// false, all-of when true. A store error is logged and yields an empty
// slice, never an error.
func (c *Cache) QueryByTags(ctx context.Context, tags []string, matchAll bool) []Record {
	records, err := c.store.QueryByTags(ctx, normalizeTags(tags), matchAll)
	if err != nil {
		c.log.Error("query by tags %v failed: %v", tags, err)
		return nil
	}
	return records
}

// GetByKey returns the most recently updated flushed record with the given
// key. Keys are not unique; callers needing full history should query by
// tags instead. A store error is logged and reported as not found.
func (c *Cache) GetByKey(ctx context.Context, key string) (Record, bool) {
	rec, found, err := c.store.GetByKey(ctx, key)
	if err != nil {
		c.log.Error("get by key %q failed: %v", key, err)
		return Record{}, false
	}
	return rec, found
}

// UpdateItem replaces a flushed record's value and refreshes its UpdatedAt.
// A nil tags slice preserves the record's existing tags; a non-nil slice
// (even empty) replaces them. Returns false for an unknown id or a store
// error (logged), never an error.
func (c *Cache) UpdateItem(ctx context.Context, id string, value map[string]any, tags []string) bool {
	if tags != nil {
		tags = normalizeTags(tags)
	}
	found, err := c.store.Update(ctx, id, value, tags, time.Now().UTC())
	if err != nil {
		c.log.Error("update of %s failed: %v", id, err)
		return false
	}
	if !found {
		c.log.Debug("update of %s: no such record", id)
	}
	return found
}

// CleanupOlderThan deletes flushed records created more than days×24h ago.
// The cutoff is computed with duration arithmetic, so it is safe across
// month and year boundaries. A record created at exactly the cutoff instant
// survives; in practice a record created days ago is always removed because
// wall time has advanced past the boundary. Returns the number removed, or
// 0 on a store error (logged).
func (c *Cache) CleanupOlderThan(ctx context.Context, days int) int {
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Error("cleanup older than %d days failed: %v", days, err)
		return 0
	}
	if removed > 0 {
		c.log.Info("cleanup removed %d records older than %d days", removed, days)
	}
	return removed
}

// Pending returns the number of buffered records awaiting flush.
func (c *Cache) Pending() int {
	return len(c.pending)
}

// Close flushes any pending records and closes the store.
func (c *Cache) Close(ctx context.Context) error {
	c.Flush(ctx)
	return c.store.Close()
}
