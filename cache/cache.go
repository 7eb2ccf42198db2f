// Package cache provides translation caching implementations.
//
// Keys are built by nbtlai.CacheKey from the span hash, the language pair and
// the backend name; the stores treat them as opaque strings.
package cache

import (
	"context"
	"fmt"
	"strings"
)

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// Store is a cache that holds resources until closed.
type Store interface {
	TranslationCache
	Close() error
}

// Lister is implemented by caches whose contents can be exported.
type Lister interface {
	// Entries returns all live entries.
	Entries() (map[string]string, error)
}

// Config selects and configures a cache store.
type Config struct {
	Kind       string // none, memory, redis or sqlite
	TTL        int    // TTL in seconds (0 = no expiration)
	RedisURL   string
	KeyPrefix  string // Redis key prefix (default: "nbtlai:")
	SQLitePath string
}

// Kinds lists the accepted values of Config.Kind.
var Kinds = []string{"none", "memory", "redis", "sqlite"}

// Open creates the store selected by cfg.Kind. It returns nil for "none" or
// an empty kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewInMemoryCache(cfg.TTL), nil
	case "redis":
		return NewRedisCache(ctx, RedisConfig{URL: cfg.RedisURL, TTL: cfg.TTL, KeyPrefix: cfg.KeyPrefix})
	case "sqlite":
		return NewSQLiteCache(ctx, SQLiteConfig{Path: cfg.SQLitePath, TTL: cfg.TTL})
	default:
		return nil, fmt.Errorf("unknown cache kind %q (available: %s)", cfg.Kind, strings.Join(Kinds, ", "))
	}
}
