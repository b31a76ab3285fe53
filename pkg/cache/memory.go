package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache implements Store using an in-memory LRU cache.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	lru        *list.List
	config     Config
	currentMem int64
	hits       atomic.Int64
	misses     atomic.Int64
	stopCh     chan struct{}
	stopped    bool
	now        func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	size      int64
}

// NewMemoryCache creates a new in-memory cache and starts its expiry sweeper.
func NewMemoryCache(cfg Config) *MemoryCache {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Second
	}

	c := &MemoryCache{
		items:  make(map[string]*list.Element),
		lru:    list.New(),
		config: cfg,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}

	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// Cleanup removes expired items immediately.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, elem := range c.items {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			c.deleteInternal(key)
		}
	}
}

func (c *MemoryCache) deleteInternal(key string) {
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		c.currentMem -= entry.size
		c.lru.Remove(elem)
		delete(c.items, key)
	}
}

func (c *MemoryCache) evict(needed int64) {
	for c.lru.Len() > 0 && c.config.MaxMemory > 0 && c.currentMem+needed > c.config.MaxMemory {
		c.deleteInternal(c.lru.Back().Value.(*memoryEntry).key)
	}
	for c.lru.Len() > 0 && c.config.MaxItems > 0 && c.lru.Len() >= c.config.MaxItems {
		c.deleteInternal(c.lru.Back().Value.(*memoryEntry).key)
	}
}

// Get retrieves a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	entry := elem.Value.(*memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.deleteInternal(key)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.lru.MoveToFront(elem)
	c.hits.Add(1)

	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value with the given TTL; zero means the configured default.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	size := int64(len(valueCopy))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteInternal(key)
	c.evict(size)

	elem := c.lru.PushFront(&memoryEntry{
		key:       key,
		value:     valueCopy,
		expiresAt: c.now().Add(ttl),
		size:      size,
	})
	c.items[key] = elem
	c.currentMem += size

	return nil
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteInternal(key)
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.deleteInternal(key)
		}
	}
	return nil
}

// Close stops the sweeper and clears the cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}

	c.items = make(map[string]*list.Element)
	c.lru = list.New()
	c.currentMem = 0

	return nil
}

// Health always returns nil for memory cache.
func (c *MemoryCache) Health(context.Context) error {
	return nil
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Keys:       int64(len(c.items)),
		MemoryUsed: c.currentMem,
	}
}
