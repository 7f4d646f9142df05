package cache

import (
	"sync"
	"time"
)

type item struct {
	value      string
	expiration int64
}

func (it item) expired() bool {
	return it.expiration > 0 && time.Now().UnixNano() > it.expiration
}

// Cache is a small thread-safe in-memory string cache with expiration. It
// backs the advisory lookups when redis is disabled.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]item
	defaultTTL time.Duration
}

// New creates a cache. A cleanup goroutine purges expired entries every
// cleanupInterval; pass 0 to disable it.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		items:      make(map[string]item),
		defaultTTL: defaultTTL,
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key, value string) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a specific TTL; 0 means no expiration.
func (c *Cache) SetWithTTL(key, value string, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiration: exp}
}

// Get retrieves a value; the second return is false for missing or expired
// keys.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || it.expired() {
		return "", false
	}
	return it.value, true
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Count returns the number of stored entries, expired ones included.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now().UnixNano()
		c.mu.Lock()
		for k, it := range c.items {
			if it.expiration > 0 && now > it.expiration {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
