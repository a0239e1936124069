package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentkit/tagcache/logger"
	"github.com/agentkit/tagcache/tagcache"
)

// DefaultSupabaseTable is the table name used when WithTable is not given.
const DefaultSupabaseTable = "cache_items"

// SupabaseConfig carries the credentials for a Supabase project. URL is the
// project base URL (https://<ref>.supabase.co) and Key the service-role or
// anon API key.
type SupabaseConfig struct {
	URL string
	Key string
}

// SupabaseError is returned when PostgREST answers with a non-2xx status.
type SupabaseError struct {
	URL    string
	Method string
	Status int
	Body   string
}

func (e *SupabaseError) Error() string {
	return fmt.Sprintf("supabase: %s %s returned %d: %s", e.Method, e.URL, e.Status, e.Body)
}

type supabaseStore struct {
	base   *url.URL
	key    string
	client *http.Client
	log    logger.Logger
	cfg    config
}

var _ tagcache.Store = (*supabaseStore)(nil)

// NewSupabase returns a Store backed by a Supabase (PostgREST) table.
// Missing URL or Key is the fatal configuration error of the system: the
// store cannot be constructed and nothing downstream runs.
func NewSupabase(log logger.Logger, cfg SupabaseConfig, opts ...Option) (tagcache.Store, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("store: supabase url and key are required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("store: parse supabase url: %w", err)
	}
	if log == nil {
		log = logger.NewConsoleLogger()
	}
	return &supabaseStore{
		base:   base,
		key:    cfg.Key,
		client: http.DefaultClient,
		log:    log.WithPrefix("[supabase]"),
		cfg:    applyOptions(opts),
	}, nil
}

// do issues one request against /rest/v1/<table> and decodes the JSON
// response into out (when out is non-nil). There is no retry: a failed
// request surfaces immediately so the cache can divert the batch to a
// backup file.
func (s *supabaseStore) do(ctx context.Context, method string, query url.Values, extraHeaders map[string]string, payload any, out any) error {
	qctx, cancel := context.WithTimeout(ctx, s.cfg.queryTimeout)
	defer cancel()

	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/rest/v1/" + s.cfg.table
	u.RawQuery = query.Encode()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: marshal payload: %w", err)
		}
	}

	s.log.Trace("sending request: %s %s", method, u.String())
	req, err := http.NewRequestWithContext(qctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", method, u.String(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("store: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SupabaseError{URL: u.String(), Method: method, Status: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("store: decode response: %w", err)
		}
	}
	return nil
}

// tagList renders tags as a PostgREST array literal, e.g. {a,c}.
func tagList(tags []string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

func (s *supabaseStore) InsertBatch(ctx context.Context, records []tagcache.Record) error {
	return s.do(ctx, http.MethodPost, url.Values{}, map[string]string{
		"Prefer": "return=minimal",
	}, records, nil)
}

func (s *supabaseStore) QueryByTags(ctx context.Context, tags []string, matchAll bool) ([]tagcache.Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "updated_at.desc")
	// cs = contains (superset, AND), ov = overlap (intersection, OR).
	if matchAll {
		query.Set("tags", "cs."+tagList(tags))
	} else {
		query.Set("tags", "ov."+tagList(tags))
	}
	var out []tagcache.Record
	if err := s.do(ctx, http.MethodGet, query, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *supabaseStore) GetByKey(ctx context.Context, key string) (tagcache.Record, bool, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("key", "eq."+key)
	query.Set("order", "updated_at.desc")
	query.Set("limit", "1")
	var out []tagcache.Record
	if err := s.do(ctx, http.MethodGet, query, nil, nil, &out); err != nil {
		return tagcache.Record{}, false, err
	}
	if len(out) == 0 {
		return tagcache.Record{}, false, nil
	}
	return out[0], true, nil
}

func (s *supabaseStore) Update(ctx context.Context, id string, value map[string]any, tags []string, updatedAt time.Time) (bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	patch := map[string]any{
		"value":      value,
		"updated_at": updatedAt.Format(time.RFC3339Nano),
	}
	if tags != nil {
		patch["tags"] = tags
	}
	var out []tagcache.Record
	if err := s.do(ctx, http.MethodPatch, query, map[string]string{
		"Prefer": "return=representation",
	}, patch, &out); err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

func (s *supabaseStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := url.Values{}
	query.Set("created_at", "lt."+cutoff.Format(time.RFC3339Nano))
	query.Set("select", "id")
	var out []struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodDelete, query, map[string]string{
		"Prefer": "return=representation",
	}, nil, &out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (s *supabaseStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
