package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/tagcache"
)

// makeRecord builds a record with explicit timestamps so ordering assertions
// are deterministic across backends.
func makeRecord(key string, tags []string, createdAt, updatedAt time.Time) tagcache.Record {
	return tagcache.Record{
		ID:        uuid.New().String(),
		Key:       key,
		Value:     map[string]any{"key": key},
		Tags:      tags,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
}

// runStoreConformance exercises the full Store contract against a backend.
func runStoreConformance(t *testing.T, st tagcache.Store) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("GetByKeyLatestWins", func(t *testing.T) {
		older := makeRecord("shared", nil, now, now)
		newer := makeRecord("shared", nil, now, now.Add(time.Hour))
		require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{older, newer}))

		rec, found, err := st.GetByKey(ctx, "shared")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, newer.ID, rec.ID)

		_, found, err = st.GetByKey(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("TagSemantics", func(t *testing.T) {
		ab := makeRecord("tags-ab", []string{"a", "b"}, now, now)
		ac := makeRecord("tags-ac", []string{"a", "c"}, now, now)
		require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{ab, ac}))

		either, err := st.QueryByTags(ctx, []string{"a", "c"}, false)
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, rec := range either {
			ids[rec.ID] = true
		}
		assert.True(t, ids[ab.ID])
		assert.True(t, ids[ac.ID])

		both, err := st.QueryByTags(ctx, []string{"a", "c"}, true)
		require.NoError(t, err)
		require.Len(t, filterIDs(both, ab.ID, ac.ID), 1)
		assert.Equal(t, ac.ID, filterIDs(both, ab.ID, ac.ID)[0].ID)

		none, err := st.QueryByTags(ctx, []string{"zzz"}, false)
		require.NoError(t, err)
		assert.Empty(t, filterIDs(none, ab.ID, ac.ID))
	})

	t.Run("UpdatePreservesTagsWhenNil", func(t *testing.T) {
		rec := makeRecord("upd", []string{"keep", "me"}, now, now)
		require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{rec}))

		later := now.Add(2 * time.Hour)
		found, err := st.Update(ctx, rec.ID, map[string]any{"v": "new"}, nil, later)
		require.NoError(t, err)
		require.True(t, found)

		got, found, err := st.GetByKey(ctx, "upd")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "new", got.Value["v"])
		assert.ElementsMatch(t, []string{"keep", "me"}, got.Tags)
		assert.True(t, got.UpdatedAt.Equal(later))
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("UpdateReplacesTagsWhenGiven", func(t *testing.T) {
		rec := makeRecord("upd2", []string{"old"}, now, now)
		require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{rec}))

		found, err := st.Update(ctx, rec.ID, map[string]any{}, []string{"fresh"}, now.Add(time.Hour))
		require.NoError(t, err)
		require.True(t, found)

		got, found, err := st.GetByKey(ctx, "upd2")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []string{"fresh"}, got.Tags)

		matches, err := st.QueryByTags(ctx, []string{"old"}, false)
		require.NoError(t, err)
		assert.Empty(t, filterIDs(matches, rec.ID))
	})

	t.Run("UpdateUnknownID", func(t *testing.T) {
		found, err := st.Update(ctx, uuid.New().String(), map[string]any{}, nil, now)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		cutoff := now.Add(-24 * time.Hour)
		old := makeRecord("cleanup-old", []string{"cleanup"}, cutoff.Add(-time.Minute), now)
		edge := makeRecord("cleanup-edge", []string{"cleanup"}, cutoff, now)
		fresh := makeRecord("cleanup-fresh", []string{"cleanup"}, now, now)
		require.NoError(t, st.InsertBatch(ctx, []tagcache.Record{old, edge, fresh}))

		removed, err := st.DeleteOlderThan(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		// Strictly-before semantics: the record created at the cutoff instant
		// and the fresh one both survive.
		left, err := st.QueryByTags(ctx, []string{"cleanup"}, false)
		require.NoError(t, err)
		assert.Len(t, filterIDs(left, old.ID, edge.ID, fresh.ID), 2)

		removed, err = st.DeleteOlderThan(ctx, cutoff)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

// filterIDs returns the records whose ID is in ids, keeping conformance runs
// independent of records inserted by sibling subtests.
func filterIDs(records []tagcache.Record, ids ...string) []tagcache.Record {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []tagcache.Record
	for _, rec := range records {
		if want[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}
