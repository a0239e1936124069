package tagcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// backupTimeFormat names backup files by the UTC instant of the failed
// flush, millisecond precision.
const backupTimeFormat = "20060102T150405.000"

// writeBackup snapshots a failed batch to a new JSON file in dir and returns
// its path. Files are write-once: an existing file is never overwritten, and
// a same-millisecond collision gets a random suffix instead.
func writeBackup(dir string, records []Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("tagcache: create backup dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tagcache: encode backup: %w", err)
	}
	stamp := time.Now().UTC().Format(backupTimeFormat)
	path := filepath.Join(dir, "backup_"+stamp+".json")
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(dir, "backup_"+stamp+"_"+uuid.New().String()[:8]+".json")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("tagcache: write backup %s: %w", path, err)
	}
	return path, nil
}

// ReadBackup parses a backup file written by a failed flush. The records are
// returned exactly as they were pending, ready to be re-submitted with
// [Cache.Recover].
func ReadBackup(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagcache: read backup: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("tagcache: parse backup %s: %w", path, err)
	}
	return records, nil
}

// Recover re-submits records from a backup file as one atomic batch,
// bypassing the pending queue. Unlike Flush there is no fallback here — a
// failed recovery returns the error and leaves the backup file as the source
// of truth. Deleting the file after a successful recovery is the operator's
// call.
func (c *Cache) Recover(ctx context.Context, path string) (int, error) {
	records, err := ReadBackup(path)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := c.store.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("tagcache: recover %s: %w", path, err)
	}
	c.log.Info("recovered %d records from %s", len(records), path)
	return len(records), nil
}
