// Package config resolves tagcache configuration from YAML files,
// environment variables, and env files, and constructs the configured store
// backend.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentkit/tagcache/logger"
	"github.com/agentkit/tagcache/store"
	"github.com/agentkit/tagcache/tagcache"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendSupabase = "supabase"
)

// Supabase holds the PostgREST credentials and table name.
type Supabase struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Table string `yaml:"table"`
}

// Config selects and parameterizes a store backend plus the cache's batching
// behavior. The zero value is usable: memory backend, default batch size,
// backups in the current directory.
type Config struct {
	Backend     string   `yaml:"backend"`
	BatchSize   int      `yaml:"batch_size"`
	BackupDir   string   `yaml:"backup_dir"`
	SQLitePath  string   `yaml:"sqlite_path"`
	RedisURL    string   `yaml:"redis_url"`
	RedisPrefix string   `yaml:"redis_prefix"`
	Supabase    Supabase `yaml:"supabase"`
}

// Load reads a YAML config file. Values not present keep their zero value;
// callers usually layer FromEnv on top.
func Load(path string) (Config, error) {
	var cfg Config
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv fills unset fields from TAGCACHE_* environment variables:
// TAGCACHE_BACKEND, TAGCACHE_BATCH_SIZE, TAGCACHE_BACKUP_DIR,
// TAGCACHE_SQLITE_PATH, TAGCACHE_REDIS_URL, TAGCACHE_REDIS_PREFIX,
// TAGCACHE_SUPABASE_URL, TAGCACHE_SUPABASE_KEY, TAGCACHE_SUPABASE_TABLE.
func (c Config) FromEnv() Config {
	setIfEmpty(&c.Backend, "TAGCACHE_BACKEND")
	setIfEmpty(&c.BackupDir, "TAGCACHE_BACKUP_DIR")
	setIfEmpty(&c.SQLitePath, "TAGCACHE_SQLITE_PATH")
	setIfEmpty(&c.RedisURL, "TAGCACHE_REDIS_URL")
	setIfEmpty(&c.RedisPrefix, "TAGCACHE_REDIS_PREFIX")
	setIfEmpty(&c.Supabase.URL, "TAGCACHE_SUPABASE_URL")
	setIfEmpty(&c.Supabase.Key, "TAGCACHE_SUPABASE_KEY")
	setIfEmpty(&c.Supabase.Table, "TAGCACHE_SUPABASE_TABLE")
	if c.BatchSize == 0 {
		if v, err := strconv.Atoi(os.Getenv("TAGCACHE_BATCH_SIZE")); err == nil && v > 0 {
			c.BatchSize = v
		}
	}
	return c
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// CacheOptions renders the batching-related fields as tagcache options.
func (c Config) CacheOptions() []tagcache.Option {
	var opts []tagcache.Option
	if c.BatchSize > 0 {
		opts = append(opts, tagcache.WithBatchSize(c.BatchSize))
	}
	if c.BackupDir != "" {
		opts = append(opts, tagcache.WithBackupDir(c.BackupDir))
	}
	return opts
}

// OpenStore constructs the configured backend. An empty Backend defaults to
// memory. Redis connectivity is verified with a ping so a bad address fails
// here rather than on the first flush.
func (c Config) OpenStore(ctx context.Context, log logger.Logger) (tagcache.Store, error) {
	switch c.Backend {
	case "", BackendMemory:
		return store.NewMemory(), nil
	case BackendSQLite:
		return store.NewSQLite(ctx, c.SQLitePath)
	case BackendRedis:
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("config: parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if _, err := client.Ping(ctx).Result(); err != nil {
			client.Close()
			return nil, fmt.Errorf("config: connect to redis: %w", err)
		}
		return store.NewRedis(client, store.WithPrefix(c.RedisPrefix)), nil
	case BackendSupabase:
		return store.NewSupabase(log, store.SupabaseConfig{
			URL: c.Supabase.URL,
			Key: c.Supabase.Key,
		}, store.WithTable(c.Supabase.Table))
	default:
		return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}

// ParseAge parses a human age like "30d", "12h" or "1w2d" into a duration.
// Plain integers are taken as days.
func ParseAge(s string) (time.Duration, error) {
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("config: negative age %q", s)
		}
		return time.Duration(v) * 24 * time.Hour, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid age %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: negative age %q", s)
	}
	return d, nil
}
