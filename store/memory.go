package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentkit/tagcache/tagcache"
)

type memoryStore struct {
	mutex   sync.Mutex
	records map[string]tagcache.Record
}

var _ tagcache.Store = (*memoryStore)(nil)

// NewMemory returns an in-process Store guarded by a mutex. Records are
// copied on the way in and out, so callers cannot mutate stored state.
func NewMemory() tagcache.Store {
	return &memoryStore{records: make(map[string]tagcache.Record)}
}

func (s *memoryStore) InsertBatch(_ context.Context, records []tagcache.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	// Validate before writing anything so the batch stays all-or-nothing.
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("store: record with empty id")
		}
		if _, exists := s.records[rec.ID]; exists {
			return fmt.Errorf("store: duplicate record id %s", rec.ID)
		}
	}
	for _, rec := range records {
		s.records[rec.ID] = rec.Clone()
	}
	return nil
}

func (s *memoryStore) QueryByTags(_ context.Context, tags []string, matchAll bool) ([]tagcache.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var out []tagcache.Record
	for _, rec := range s.records {
		if matchAll {
			if rec.HasAllTags(tags) {
				out = append(out, rec.Clone())
			}
		} else if rec.HasAnyTag(tags) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *memoryStore) GetByKey(_ context.Context, key string) (tagcache.Record, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var best tagcache.Record
	var found bool
	for _, rec := range s.records {
		if rec.Key != key {
			continue
		}
		if !found || rec.UpdatedAt.After(best.UpdatedAt) {
			best = rec
			found = true
		}
	}
	if !found {
		return tagcache.Record{}, false, nil
	}
	return best.Clone(), true, nil
}

func (s *memoryStore) Update(_ context.Context, id string, value map[string]any, tags []string, updatedAt time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	rec.Value = value
	if tags != nil {
		rec.Tags = append([]string(nil), tags...)
	}
	rec.UpdatedAt = updatedAt
	s.records[id] = rec.Clone()
	return true, nil
}

func (s *memoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var removed int
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryStore) Close() error {
	return nil
}
