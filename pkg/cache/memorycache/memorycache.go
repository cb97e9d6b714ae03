package memorycache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mizutani/meibo/pkg/cache"
)

// entry is a cached value with expiry and an approximate memory footprint
type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	size      int64
}

// Config holds configuration for the memory cache.
type Config struct {
	// MaxSizeBytes is the maximum total size of cached items in bytes.
	// When this limit is exceeded, least recently used items are evicted.
	MaxSizeBytes int64

	// DefaultTTL is the fallback time-to-live used when Set receives a
	// non-positive TTL.
	DefaultTTL time.Duration

	// EnableMetrics enables collection of cache metrics.
	EnableMetrics bool
}

// Cache implements an LRU cache with per-entry TTL. Parsed schemas are the
// main tenant: a handful of entries, each a few kilobytes.
type Cache struct {
	mu sync.Mutex

	items     map[string]*list.Element
	evictList *list.List // front = most recent, back = least recent

	maxSize     int64
	defaultTTL  time.Duration
	currentSize int64

	metrics *cache.Metrics
}

// New creates a new memory cache with the given configuration.
func New(config *Config) (*Cache, error) {
	c := &Cache{
		items:      make(map[string]*list.Element),
		evictList:  list.New(),
		maxSize:    config.MaxSizeBytes,
		defaultTTL: config.DefaultTTL,
	}

	if config.EnableMetrics {
		c.metrics = &cache.Metrics{}
	}

	return c, nil
}

// Get retrieves a value from cache. Expired entries are removed on access.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.miss()
		return nil, false
	}

	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.miss()
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.Hits++
	}
	return ent.value, true
}

// Set stores a value in cache with the specified TTL. A non-positive TTL
// falls back to the configured default.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	size := sizeOf(key, value)
	expiresAt := time.Now().Add(ttl)

	if elem, exists := c.items[key]; exists {
		ent := elem.Value.(*entry)
		c.currentSize += size - ent.size
		ent.value = value
		ent.expiresAt = expiresAt
		ent.size = size
		c.evictList.MoveToFront(elem)
	} else {
		elem := c.evictList.PushFront(&entry{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
			size:      size,
		})
		c.items[key] = elem
		c.currentSize += size
		if c.metrics != nil {
			c.metrics.KeysAdded++
		}
	}

	// Evict least recently used entries until under capacity
	for c.currentSize > c.maxSize && c.evictList.Len() > 1 {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		if c.metrics != nil {
			c.metrics.KeysEvicted++
		}
	}

	return nil
}

// Delete removes a value from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all entries from cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	c.currentSize = 0
	return nil
}

// Close releases resources (no-op for memory cache).
func (c *Cache) Close() error {
	return nil
}

// Metrics returns a snapshot of cache statistics.
func (c *Cache) Metrics() *cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		return &cache.Metrics{}
	}
	snapshot := *c.metrics
	return &snapshot
}

// Len returns the current number of items in cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the current total size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.Misses++
	}
}

// removeElement removes an element (caller must hold the lock)
func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.currentSize -= ent.size
}

// sizeOf approximates an entry's memory footprint. String and byte values
// are counted; everything else gets a flat per-entry estimate.
func sizeOf(key string, value interface{}) int64 {
	size := int64(100 + len(key))
	switch v := value.(type) {
	case string:
		size += int64(len(v))
	case []byte:
		size += int64(len(v))
	}
	return size
}
