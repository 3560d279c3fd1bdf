package search

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// cacheEntry is a cached search result
type cacheEntry struct {
	Result    Result
	Timestamp time.Time
	Hash      string
	Took      time.Duration
}

// Cache provides LRU caching for ranked results, keyed by normalized query
// and catalog hash so a reload never serves stale tiers.
type Cache struct {
	cache   *lru.Cache[string, *cacheEntry]
	maxSize int
	hits    int64
	misses  int64
	log     *zap.Logger
	mu      sync.RWMutex
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCache creates a new result cache with the specified maximum size
func NewCache(maxSize int, log *zap.Logger) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = 100
	}

	cache, err := lru.New[string, *cacheEntry](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{
		cache:   cache,
		maxSize: maxSize,
		log:     log,
	}, nil
}

// Get retrieves a cached result for a normalized query and catalog hash
func (c *Cache) Get(query, hash string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := makeKey(query, hash)
	entry, found := c.cache.Get(key)
	if found && entry.Hash == hash {
		atomic.AddInt64(&c.hits, 1)
		return entry.Result, true
	}

	atomic.AddInt64(&c.misses, 1)
	return Result{}, false
}

// Put stores a result in the cache
func (c *Cache) Put(query, hash string, result Result, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(query, hash)
	if c.cache.Len() >= c.maxSize {
		c.evictStaleEntries(hash)
	}

	c.cache.Add(key, &cacheEntry{
		Result:    result,
		Timestamp: time.Now(),
		Hash:      hash,
		Took:      took,
	})
}

// Invalidate removes all cached entries
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() *CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return &CacheStats{
		Size:    c.cache.Len(),
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// evictStaleEntries drops entries computed against an older catalog before
// the LRU starts evicting live ones.
func (c *Cache) evictStaleEntries(currentHash string) {
	evicted := 0
	for _, key := range c.cache.Keys() {
		if entry, found := c.cache.Peek(key); found && entry.Hash != currentHash {
			c.cache.Remove(key)
			evicted++
		}
	}
	if evicted > 0 {
		c.log.Debug("evicted stale results", zap.Int("count", evicted))
	}
}

func makeKey(query, hash string) string {
	return query + "\x00" + hash
}
