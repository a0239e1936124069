package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/agentkit/tagcache/tagcache"
)

type redisStore struct {
	client *redis.Client
	cfg    config
}

var _ tagcache.Store = (*redisStore)(nil)

// redisRecord is the msgpack wire form of a record. Timestamps are UnixNano
// so they survive serialization without timezone ambiguity.
type redisRecord struct {
	ID        string         `msgpack:"id"`
	Key       string         `msgpack:"key"`
	Value     map[string]any `msgpack:"value"`
	Tags      []string       `msgpack:"tags"`
	CreatedAt int64          `msgpack:"created_at"`
	UpdatedAt int64          `msgpack:"updated_at"`
}

func toRedisRecord(rec tagcache.Record) redisRecord {
	return redisRecord{
		ID:        rec.ID,
		Key:       rec.Key,
		Value:     rec.Value,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt.UnixNano(),
		UpdatedAt: rec.UpdatedAt.UnixNano(),
	}
}

func (r redisRecord) toRecord() tagcache.Record {
	return tagcache.Record{
		ID:        r.ID,
		Key:       r.Key,
		Value:     r.Value,
		Tags:      r.Tags,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}
}

// NewRedis returns a Store backed by Redis. The caller owns the redis.Client
// lifecycle — Close is a no-op on the client. Records live under
// rec:<id>; tag sets, a per-key update-time zset, and a creation-time zset
// serve the query side.
func NewRedis(client *redis.Client, opts ...Option) tagcache.Store {
	return &redisStore{client: client, cfg: applyOptions(opts)}
}

func (s *redisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.cfg.queryTimeout)
}

func (s *redisStore) p(key string) string {
	if s.cfg.prefix == "" {
		return key
	}
	return s.cfg.prefix + ":" + key
}

func (s *redisStore) recKey(id string) string  { return s.p("rec:" + id) }
func (s *redisStore) tagKey(tag string) string { return s.p("tag:" + tag) }
func (s *redisStore) keyIdx(key string) string { return s.p("key:" + key) }
func (s *redisStore) createdIdx() string       { return s.p("created") }

func (s *redisStore) InsertBatch(ctx context.Context, records []tagcache.Record) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	pipe := s.client.TxPipeline()
	for _, rec := range records {
		data, err := msgpack.Marshal(toRedisRecord(rec))
		if err != nil {
			return fmt.Errorf("store: encode record %s: %w", rec.ID, err)
		}
		pipe.Set(qctx, s.recKey(rec.ID), data, 0)
		for _, tag := range rec.Tags {
			pipe.SAdd(qctx, s.tagKey(tag), rec.ID)
		}
		pipe.ZAdd(qctx, s.keyIdx(rec.Key), redis.Z{Score: float64(rec.UpdatedAt.UnixNano()), Member: rec.ID})
		pipe.ZAdd(qctx, s.createdIdx(), redis.Z{Score: float64(rec.CreatedAt.UnixNano()), Member: rec.ID})
	}
	_, err := pipe.Exec(qctx)
	return err
}

func (s *redisStore) fetch(ctx context.Context, id string) (tagcache.Record, bool, error) {
	data, err := s.client.Get(ctx, s.recKey(id)).Bytes()
	if err == redis.Nil {
		return tagcache.Record{}, false, nil
	}
	if err != nil {
		return tagcache.Record{}, false, err
	}
	var wire redisRecord
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return tagcache.Record{}, false, fmt.Errorf("store: decode record %s: %w", id, err)
	}
	return wire.toRecord(), true, nil
}

func (s *redisStore) QueryByTags(ctx context.Context, tags []string, matchAll bool) ([]tagcache.Record, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var ids []string
	var err error
	switch {
	case len(tags) == 0 && matchAll:
		// Superset of the empty set: every record matches.
		ids, err = s.client.ZRange(qctx, s.createdIdx(), 0, -1).Result()
	case len(tags) == 0:
		return nil, nil
	default:
		keys := make([]string, len(tags))
		for i, tag := range tags {
			keys[i] = s.tagKey(tag)
		}
		if matchAll {
			ids, err = s.client.SInter(qctx, keys...).Result()
		} else {
			ids, err = s.client.SUnion(qctx, keys...).Result()
		}
	}
	if err != nil {
		return nil, err
	}

	var out []tagcache.Record
	for _, id := range ids {
		rec, found, err := s.fetch(qctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *redisStore) GetByKey(ctx context.Context, key string) (tagcache.Record, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	ids, err := s.client.ZRevRange(qctx, s.keyIdx(key), 0, 0).Result()
	if err != nil {
		return tagcache.Record{}, false, err
	}
	if len(ids) == 0 {
		return tagcache.Record{}, false, nil
	}
	return s.fetch(qctx, ids[0])
}

func (s *redisStore) Update(ctx context.Context, id string, value map[string]any, tags []string, updatedAt time.Time) (bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	rec, found, err := s.fetch(qctx, id)
	if err != nil || !found {
		return false, err
	}

	oldTags := rec.Tags
	rec.Value = value
	if tags != nil {
		rec.Tags = tags
	}
	rec.UpdatedAt = updatedAt

	data, err := msgpack.Marshal(toRedisRecord(rec))
	if err != nil {
		return false, fmt.Errorf("store: encode record %s: %w", id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(qctx, s.recKey(id), data, 0)
	pipe.ZAdd(qctx, s.keyIdx(rec.Key), redis.Z{Score: float64(updatedAt.UnixNano()), Member: id})
	if tags != nil {
		for _, tag := range oldTags {
			pipe.SRem(qctx, s.tagKey(tag), id)
		}
		for _, tag := range rec.Tags {
			pipe.SAdd(qctx, s.tagKey(tag), id)
		}
	}
	if _, err := pipe.Exec(qctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	ids, err := s.client.ZRangeByScore(qctx, s.createdIdx(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixNano(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	var removed int
	for _, id := range ids {
		rec, found, err := s.fetch(qctx, id)
		if err != nil {
			return removed, err
		}
		pipe := s.client.TxPipeline()
		if found {
			for _, tag := range rec.Tags {
				pipe.SRem(qctx, s.tagKey(tag), id)
			}
			pipe.ZRem(qctx, s.keyIdx(rec.Key), id)
		}
		pipe.Del(qctx, s.recKey(id))
		pipe.ZRem(qctx, s.createdIdx(), id)
		if _, err := pipe.Exec(qctx); err != nil {
			return removed, err
		}
		if found {
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op — the caller owns the redis.Client lifecycle.
func (s *redisStore) Close() error {
	return nil
}
