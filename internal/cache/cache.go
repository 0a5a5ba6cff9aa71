// Package cache provides caching implementations for Kestrel. The cache
// backs API rate limiting and read-side caching of persisted decisions.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// New creates a new cache based on configuration. Single-node deployments
// use the in-memory LRU; multi-node deployments use Redis so rate-limit
// counters are shared.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

func decisionKey(class domain.EntityClass, id int64) string {
	return "decision:" + string(class) + ":" + strconv.FormatInt(id, 10)
}

// DecisionRecord pairs a persisted event with its decision so that cache
// hits serve the same envelope as store reads. The event is kept as raw
// JSON because reviews and transactions share the cache.
type DecisionRecord struct {
	Event    json.RawMessage  `json:"event"`
	Decision *domain.Decision `json:"decision"`
}

// GetRecord retrieves a cached decision record. Returns nil, nil on miss.
func GetRecord(ctx context.Context, c domain.Cache, class domain.EntityClass, id int64) (*DecisionRecord, error) {
	data, err := c.Get(ctx, decisionKey(class, id))
	if err != nil || data == nil {
		return nil, err
	}

	var rec DecisionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetRecord caches an event and its decision for subsequent reads.
func SetRecord(ctx context.Context, c domain.Cache, class domain.EntityClass, id int64, ev any, d *domain.Decision, ttl time.Duration) error {
	event, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(DecisionRecord{Event: event, Decision: d})
	if err != nil {
		return err
	}
	return c.Set(ctx, decisionKey(class, id), data, ttl)
}
