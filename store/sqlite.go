package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentkit/tagcache/tagcache"
)

type sqliteStore struct {
	db  *sql.DB
	cfg config
}

var _ tagcache.Store = (*sqliteStore)(nil)

// NewSQLite returns a Store backed by SQLite at dbPath. If dbPath is empty
// or ":memory:", an in-memory database is used. The schema is created on
// open; WAL mode is enabled.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (tagcache.Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection, so the pool must not
	// grow past one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		tags TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	// Indexes for latest-by-key resolution and age-based cleanup.
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_records_key ON records(key, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &sqliteStore{db: db, cfg: applyOptions(opts)}, nil
}

func (s *sqliteStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.cfg.queryTimeout)
}

func encodeRow(rec tagcache.Record) (value string, tags string, err error) {
	valueBuf, err := json.Marshal(rec.Value)
	if err != nil {
		return "", "", fmt.Errorf("store: encode value for %s: %w", rec.ID, err)
	}
	tagsBuf, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", "", fmt.Errorf("store: encode tags for %s: %w", rec.ID, err)
	}
	return string(valueBuf), string(tagsBuf), nil
}

func scanRecord(rows interface {
	Scan(dest ...any) error
}) (tagcache.Record, error) {
	var rec tagcache.Record
	var value, tags string
	var createdAt, updatedAt int64
	if err := rows.Scan(&rec.ID, &rec.Key, &value, &tags, &createdAt, &updatedAt); err != nil {
		return tagcache.Record{}, err
	}
	if err := json.Unmarshal([]byte(value), &rec.Value); err != nil {
		return tagcache.Record{}, fmt.Errorf("store: decode value for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return tagcache.Record{}, fmt.Errorf("store: decode tags for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return rec, nil
}

func (s *sqliteStore) InsertBatch(ctx context.Context, records []tagcache.Record) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	tx, err := s.db.BeginTx(qctx, nil)
	if err != nil {
		return err
	}
	for _, rec := range records {
		value, tags, err := encodeRow(rec)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(qctx,
			`INSERT INTO records (id, key, value, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Key, value, tags, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryByTags scans candidate rows and evaluates tag membership in Go. Tags
// are stored as a JSON array; deferring the match to Go avoids depending on
// the json1 extension being available.
func (s *sqliteStore) QueryByTags(ctx context.Context, tags []string, matchAll bool) ([]tagcache.Record, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(qctx,
		`SELECT id, key, value, tags, created_at, updated_at FROM records ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []tagcache.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if matchAll {
			if rec.HasAllTags(tags) {
				out = append(out, rec)
			}
		} else if rec.HasAnyTag(tags) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetByKey(ctx context.Context, key string) (tagcache.Record, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	row := s.db.QueryRowContext(qctx,
		`SELECT id, key, value, tags, created_at, updated_at FROM records
		WHERE key = ? ORDER BY updated_at DESC LIMIT 1`, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return tagcache.Record{}, false, nil
	}
	if err != nil {
		return tagcache.Record{}, false, err
	}
	return rec, true, nil
}

func (s *sqliteStore) Update(ctx context.Context, id string, value map[string]any, tags []string, updatedAt time.Time) (bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	valueBuf, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("store: encode value for %s: %w", id, err)
	}
	var result sql.Result
	if tags != nil {
		tagsBuf, err := json.Marshal(tags)
		if err != nil {
			return false, fmt.Errorf("store: encode tags for %s: %w", id, err)
		}
		result, err = s.db.ExecContext(qctx,
			`UPDATE records SET value = ?, tags = ?, updated_at = ? WHERE id = ?`,
			string(valueBuf), string(tagsBuf), updatedAt.UnixNano(), id)
		if err != nil {
			return false, err
		}
	} else {
		result, err = s.db.ExecContext(qctx,
			`UPDATE records SET value = ?, updated_at = ? WHERE id = ?`,
			string(valueBuf), updatedAt.UnixNano(), id)
		if err != nil {
			return false, err
		}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *sqliteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	result, err := s.db.ExecContext(qctx,
		`DELETE FROM records WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
