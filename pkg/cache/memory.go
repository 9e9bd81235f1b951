package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
}

// NewMemory builds an in-process cache with the same tag semantics as the
// redis implementation. Suitable for single-instance deployments and tests.
func NewMemory() Cache {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	for _, tag := range tags {
		if c.tags[tag] == nil {
			c.tags[tag] = make(map[string]struct{})
		}
		c.tags[tag][key] = struct{}{}
	}
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			delete(c.entries, key)
		}
		delete(c.tags, tag)
	}
	return nil
}
