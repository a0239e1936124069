// Package producer provides convenience wrappers that shape domain payloads
// and feed them into a tagcache. Each wrapper fixes the value schema and tag
// set for one kind of record; the cache itself makes no assumption about
// value shape beyond JSON-serializability.
package producer

import (
	"context"
	"time"

	"github.com/agentkit/tagcache/tagcache"
)

// Recorder writes assistant-memory records through a cache. Like the cache
// it wraps, a Recorder is single-writer.
type Recorder struct {
	cache *tagcache.Cache
}

// NewRecorder returns a Recorder producing into cache.
func NewRecorder(cache *tagcache.Cache) *Recorder {
	return &Recorder{cache: cache}
}

// RecordIntent stores a recognized usage pattern. The payload carries the
// intent, its supporting data, and a confidence score in [0,1].
func (r *Recorder) RecordIntent(ctx context.Context, intent string, patternData map[string]any, confidence float64) (string, error) {
	return r.cache.Add(ctx, "pattern:"+intent, map[string]any{
		"intent":       intent,
		"pattern_data": patternData,
		"confidence":   confidence,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}, []string{"pattern", "intent"})
}

// RecordDecision stores a decision with its rationale under the given topic.
func (r *Recorder) RecordDecision(ctx context.Context, topic, decision, rationale string) (string, error) {
	return r.cache.Add(ctx, "decision:"+topic, map[string]any{
		"topic":     topic,
		"decision":  decision,
		"rationale": rationale,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, []string{"decision", topic})
}

// RecordResearchNote stores a research note for a topic with its sources.
func (r *Recorder) RecordResearchNote(ctx context.Context, topic string, note string, sources []string) (string, error) {
	srcs := make([]any, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}
	return r.cache.Add(ctx, "research:"+topic, map[string]any{
		"topic":     topic,
		"note":      note,
		"sources":   srcs,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, []string{"research", topic})
}
