// Package cache provides the answer cache that sits in front of the
// language model. Identical prompts within the TTL window are served
// from the cache instead of re-invoking the provider.
//
// Three backends are available: an in-process TTL+LRU cache, Redis for
// deployments with several replicas, and a no-op cache that disables
// caching entirely. Cache failures are never fatal to answering; callers
// log Get/Set errors and proceed as if the cache missed.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidConfig indicates the cache configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// Cache stores answer text keyed by prompt hash.
type Cache interface {
	// Get returns the cached value for key. ok is false on a miss;
	// a backend failure returns an error and callers treat it as a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// SetWithTTL stores value under key, expiring after ttl. A zero or
	// negative ttl stores the entry without expiry.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Close releases backend resources.
	Close() error
}

// NoopCache satisfies Cache without storing anything. It backs the
// "none" provider and the degraded mode when Redis is unreachable.
type NoopCache struct{}

// NewNoopCache creates a cache that never hits.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (*NoopCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (*NoopCache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (*NoopCache) Close() error {
	return nil
}
