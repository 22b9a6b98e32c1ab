package cache

import (
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 1000

type memoryEntry struct {
	value        string
	expiresAt    time.Time
	lastAccessed time.Time
}

// MemoryCache is a thread-safe in-process cache with per-entry TTL and
// LRU eviction at capacity. Expired entries are removed lazily on Get.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
}

// NewMemoryCache creates a cache holding at most maxEntries entries.
// A zero or negative maxEntries falls back to the default capacity.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value for key. Expired entries are deleted and
// reported as misses.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}

	entry.lastAccessed = time.Now()
	return entry.value, true, nil
}

// SetWithTTL stores value under key. When the cache is at capacity and
// key is new, the least recently used entry is evicted first.
func (c *MemoryCache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	now := time.Now()
	entry := &memoryEntry{
		value:        value,
		lastAccessed: now,
	}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// Len returns the number of entries currently held, including entries
// that have expired but not yet been swept by a Get.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close discards all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	return nil
}

// evictLRU removes the entry with the oldest access time. Caller must
// hold the lock.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, entry := range c.entries {
		if first || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
			first = false
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
