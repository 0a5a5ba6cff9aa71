package domain

import (
	"context"
	"time"
)

// Cache is a byte cache with TTLs plus windowed counters. The in-memory
// implementation serves single-node deployments; Redis serves multi-node.
type Cache interface {
	// Get retrieves a value. Returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// IncrementCounter atomically increments a counter that resets after the
	// window elapses, and returns the new count. Used for rate limiting.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Ping checks cache health.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is "memory" or "redis".
	Type string `env:"TYPE" envDefault:"memory"`

	// LocalMaxSize bounds the in-memory LRU; LocalTTL is how long decision
	// records are served from cache before falling back to the store.
	LocalMaxSize int           `env:"LOCAL_MAX_SIZE" envDefault:"10000"`
	LocalTTL     time.Duration `env:"LOCAL_TTL" envDefault:"5m"`

	// Redis settings.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}
