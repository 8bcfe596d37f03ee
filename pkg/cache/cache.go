// Package cache stores computed layouts and rendered debug artifacts so that
// re-running the same scene with the same configuration is free.
//
// Three backends implement [Cache]: [NullCache] (caching disabled),
// [FileCache] (one JSON file per entry, for the CLI) and [RedisCache] (shared
// by API replicas). [Open] builds the backend named in a [Config].
//
// Keys come from a [Keyer]; [ScopedKeyer] adds a namespace prefix so several
// tenants can share one Redis database.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A miss is reported as (nil, false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes.
const (
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Backend names accepted by [Open].
const (
	BackendNull  = "null"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string        `toml:"backend" json:"backend"`
	Dir     string        `toml:"dir" json:"dir"`
	TTL     time.Duration `toml:"ttl" json:"ttl"`
	Prefix  string        `toml:"prefix" json:"prefix"`
	Redis   RedisConfig   `toml:"redis" json:"redis"`
}

// DefaultDir returns $XDG_CACHE_HOME/sceneguard, or ~/.cache/sceneguard,
// falling back to the system temp dir when no home directory is known.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "sceneguard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "sceneguard")
	}
	return filepath.Join(os.TempDir(), "sceneguard-cache")
}

// SetDefaults fills empty fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = DefaultDir()
	}
	if c.TTL == 0 {
		c.TTL = TTLLayout
	}
	c.Redis.SetDefaults()
}

// Validate checks the backend name and the settings it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNull, BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q must be one of null, file, redis", c.Backend)
	}
	if c.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must be non-negative")
	}
	return nil
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendNull:
		return NewNullCache(), nil
	case BackendRedis:
		rc, err := NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		fc, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
}
