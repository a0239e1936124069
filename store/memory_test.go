package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/tagcache"
)

func TestMemoryConformance(t *testing.T) {
	st := NewMemory()
	defer st.Close()
	runStoreConformance(t, st)
}

func TestMemoryInsertBatchAtomic(t *testing.T) {
	st := NewMemory()
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	first := makeRecord("a", nil, now, now)
	require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{first}))

	// A batch containing a duplicate id fails without inserting anything.
	dup := makeRecord("b", nil, now, now)
	dup.ID = first.ID
	fresh := makeRecord("c", nil, now, now)
	assert.Error(t, st.InsertBatch(ctx, []tagcache.Record{fresh, dup}))

	_, found, err := st.GetByKey(ctx, "c")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCopiesRecords(t *testing.T) {
	st := NewMemory()
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := makeRecord("iso", []string{"t"}, now, now)
	require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{rec}))

	// Mutating the inserted record must not affect stored state.
	rec.Value["key"] = "mutated"
	rec.Tags[0] = "mutated"

	got, found, err := st.GetByKey(ctx, "iso")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "iso", got.Value["key"])
	assert.Equal(t, []string{"t"}, got.Tags)

	// Same isolation on the way out.
	got.Value["key"] = "changed"
	again, _, err := st.GetByKey(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "iso", again.Value["key"])
}
