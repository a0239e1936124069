package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/tagcache"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisConformance(t *testing.T) {
	st := NewRedis(newTestRedis(t), WithPrefix("test"))
	defer st.Close()
	runStoreConformance(t, st)
}

func TestRedisPrefixIsolation(t *testing.T) {
	client := newTestRedis(t)
	a := NewRedis(client, WithPrefix("a"))
	b := NewRedis(client, WithPrefix("b"))
	ctx := context.Background()
	now := time.Now().UTC()

	rec := makeRecord("shared-key", []string{"t"}, now, now)
	require.NoError(t, a.InsertBatch(ctx, []tagcache.Record{rec}))

	_, found, err := b.GetByKey(ctx, "shared-key")
	require.NoError(t, err)
	assert.False(t, found)

	matches, err := b.QueryByTags(ctx, []string{"t"}, false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRedisCloseLeavesClientOpen(t *testing.T) {
	client := newTestRedis(t)
	st := NewRedis(client)
	require.NoError(t, st.Close())
	// The caller owns the client; it must still answer after store Close.
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisValueRoundtrip(t *testing.T) {
	st := NewRedis(newTestRedis(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := makeRecord("rt", []string{"a"}, now, now)
	rec.Value = map[string]any{
		"text":   "hello",
		"number": int64(42),
		"nested": map[string]any{"deep": "value"},
	}
	require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{rec}))

	got, found, err := st.GetByKey(ctx, "rt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", got.Value["text"])
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Equal(t, []string{"a"}, got.Tags)
}
