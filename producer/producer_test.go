package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/logger"
	"github.com/agentkit/tagcache/store"
	"github.com/agentkit/tagcache/tagcache"
)

func newRecorder(t *testing.T) (*Recorder, *tagcache.Cache) {
	t.Helper()
	cache, err := tagcache.New(store.NewMemory(), logger.NewTestLogger(),
		tagcache.WithBackupDir(t.TempDir()))
	require.NoError(t, err)
	return NewRecorder(cache), cache
}

func TestRecordIntent(t *testing.T) {
	rec, cache := newRecorder(t)
	ctx := context.Background()

	id, err := rec.RecordIntent(ctx, "summarize", map[string]any{"source": "cli"}, 0.92)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Equal(t, tagcache.Flushed, cache.Flush(ctx).Status)

	got, found := cache.GetByKey(ctx, "pattern:summarize")
	require.True(t, found)
	assert.Equal(t, "summarize", got.Value["intent"])
	assert.Equal(t, 0.92, got.Value["confidence"])
	assert.Contains(t, got.Value, "pattern_data")
	assert.Contains(t, got.Value, "timestamp")
	assert.ElementsMatch(t, []string{"pattern", "intent"}, got.Tags)
}

func TestRecordDecision(t *testing.T) {
	rec, cache := newRecorder(t)
	ctx := context.Background()

	_, err := rec.RecordDecision(ctx, "storage", "use sqlite", "no infra dependency")
	require.NoError(t, err)
	cache.Flush(ctx)

	matches := cache.QueryByTags(ctx, []string{"decision"}, false)
	require.Len(t, matches, 1)
	assert.Equal(t, "use sqlite", matches[0].Value["decision"])
	assert.ElementsMatch(t, []string{"decision", "storage"}, matches[0].Tags)
}

func TestRecordResearchNote(t *testing.T) {
	rec, cache := newRecorder(t)
	ctx := context.Background()

	_, err := rec.RecordResearchNote(ctx, "embeddings", "cosine beats dot here",
		[]string{"https://example.com/paper"})
	require.NoError(t, err)
	cache.Flush(ctx)

	got, found := cache.GetByKey(ctx, "research:embeddings")
	require.True(t, found)
	assert.Equal(t, "cosine beats dot here", got.Value["note"])
	assert.ElementsMatch(t, []string{"research", "embeddings"}, got.Tags)
}
