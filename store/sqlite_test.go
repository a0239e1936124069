package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/tagcache"
)

func TestSQLiteConformance(t *testing.T) {
	st, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer st.Close()
	runStoreConformance(t, st)
}

func TestSQLiteInsertBatchAtomic(t *testing.T) {
	st, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	first := makeRecord("a", nil, now, now)
	require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{first}))

	// The duplicate id violates the primary key and rolls back the whole batch.
	dup := makeRecord("b", nil, now, now)
	dup.ID = first.ID
	fresh := makeRecord("c", nil, now, now)
	assert.Error(t, st.InsertBatch(ctx, []tagcache.Record{fresh, dup}))

	_, found, err := st.GetByKey(ctx, "c")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "records.db")
	now := time.Now().UTC().Truncate(time.Microsecond)

	st, err := NewSQLite(ctx, dbPath)
	require.NoError(t, err)
	rec := makeRecord("durable", []string{"x"}, now, now)
	require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{rec}))
	require.NoError(t, st.Close())

	st, err = NewSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer st.Close()

	got, found, err := st.GetByKey(ctx, "durable")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Equal(t, []string{"x"}, got.Tags)
}
