package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit/tagcache/logger"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: sqlite
batch_size: 25
backup_dir: /var/lib/tagcache/backups
sqlite_path: /var/lib/tagcache/records.db
supabase:
  url: https://example.supabase.co
  key: service-role-key
  table: memories
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, "/var/lib/tagcache/backups", cfg.BackupDir)
	assert.Equal(t, "/var/lib/tagcache/records.db", cfg.SQLitePath)
	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "memories", cfg.Supabase.Table)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TAGCACHE_BACKEND", "redis")
	t.Setenv("TAGCACHE_REDIS_URL", "redis://localhost:6379")
	t.Setenv("TAGCACHE_BATCH_SIZE", "5")

	cfg := Config{}.FromEnv()
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 5, cfg.BatchSize)
}

func TestFromEnvDoesNotOverrideFile(t *testing.T) {
	t.Setenv("TAGCACHE_BACKEND", "redis")
	t.Setenv("TAGCACHE_BATCH_SIZE", "5")

	cfg := Config{Backend: BackendMemory, BatchSize: 50}.FromEnv()
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestCacheOptions(t *testing.T) {
	assert.Empty(t, Config{}.CacheOptions())
	assert.Len(t, Config{BatchSize: 3, BackupDir: "/tmp/x"}.CacheOptions(), 2)
}

func TestOpenStoreMemoryDefault(t *testing.T) {
	st, err := Config{}.OpenStore(context.Background(), logger.NewTestLogger())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NoError(t, st.Close())
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "r.db")}
	st, err := cfg.OpenStore(context.Background(), logger.NewTestLogger())
	require.NoError(t, err)
	assert.NoError(t, st.Close())
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, err := Config{Backend: "tape"}.OpenStore(context.Background(), logger.NewTestLogger())
	assert.Error(t, err)
}

func TestOpenStoreBadRedisURL(t *testing.T) {
	cfg := Config{Backend: BackendRedis, RedisURL: "://nope"}
	_, err := cfg.OpenStore(context.Background(), logger.NewTestLogger())
	assert.Error(t, err)
}

func TestOpenStoreSupabaseMissingKey(t *testing.T) {
	cfg := Config{Backend: BackendSupabase, Supabase: Supabase{URL: "https://x.supabase.co"}}
	_, err := cfg.OpenStore(context.Background(), logger.NewTestLogger())
	assert.Error(t, err)
}

func TestParseAge(t *testing.T) {
	d, err := ParseAge("30d")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)

	d, err = ParseAge("7")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = ParseAge("12h")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)

	d, err = ParseAge("1w2d")
	require.NoError(t, err)
	assert.Equal(t, 9*24*time.Hour, d)

	_, err = ParseAge("soon")
	assert.Error(t, err)
	_, err = ParseAge("-3")
	assert.Error(t, err)
}
