package tagcache

import (
	"time"

	"github.com/google/uuid"
)

// Record is a single cached entry. Records are created by [Cache.Add],
// buffered in memory, and persisted to a [Store] in batches.
//
// ID is a UUID generated at insertion time and never changes. Key is a
// caller-supplied logical name and is not unique — multiple versions of the
// same key may coexist in the store, and [Cache.GetByKey] resolves the
// newest one. Tags are caller-assigned labels for categorical retrieval,
// independent of Key.
type Record struct {
	ID        string         `json:"id"`
	Key       string         `json:"key"`
	Value     map[string]any `json:"value"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// newRecord builds a Record with a fresh UUID and the current UTC time for
// both timestamps.
func newRecord(key string, value map[string]any, tags []string) Record {
	now := time.Now().UTC()
	return Record{
		ID:        uuid.New().String(),
		Key:       key,
		Value:     value,
		Tags:      normalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// normalizeTags deduplicates tags and drops empty strings, preserving
// first-seen order. A nil or empty input yields an empty (non-nil) slice so
// every record carries a well-formed tag list.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// HasAnyTag reports whether the record carries at least one of the given
// tags (OR semantics).
func (r Record) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasAllTags reports whether the record's tag set is a superset of the given
// tags (AND semantics). An empty query matches every record.
func (r Record) HasAllTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range r.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Clone returns a copy of the record with its own Tags slice and a shallow
// copy of Value. Store implementations return clones so callers cannot
// mutate stored state through the result.
func (r Record) Clone() Record {
	out := r
	out.Tags = append([]string(nil), r.Tags...)
	if r.Value != nil {
		out.Value = make(map[string]any, len(r.Value))
		for k, v := range r.Value {
			out.Value[k] = v
		}
	}
	return out
}
