// Package cache provides a thread-safe LRU cache for compiled values such as
// expressions and regular expression patterns.
//
// The evaluator uses it to avoid re-parsing the same expression argument on
// every element of a collection. Lookups are safe for concurrent use and
// GetOrCompile runs the compile callback at most once per key even when
// several goroutines miss on the same key at the same time.
//
// # Example
//
//	c := cache.New[*evaluator.Expression](1024)
//	expr, err := c.GetOrCompile("age >= 18", compile)
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is used when New receives a non-positive capacity.
const DefaultCapacity = 256

// Cache is an LRU (Least Recently Used) cache keyed by expression source.
// Once the capacity is reached, the least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache[V any] struct {
	capacity int
	lru      *lru.Cache[string, V]
	group    singleflight.Group
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, DefaultCapacity is used.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[string, V](capacity)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Cache[V]{capacity: capacity, lru: l}
}

// Get retrieves a value from the cache and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set inserts or replaces a value. If at capacity, the least recently used
// entry is evicted first.
func (c *Cache[V]) Set(key string, v V) {
	c.lru.Add(key, v)
}

// GetOrCompile retrieves the value for key from the cache, or calls compile
// to create it, caches the result and returns it. Concurrent callers missing
// on the same key share a single compile call. Errors are not cached.
func (c *Cache[V]) GetOrCompile(key string, compile func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := compile()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Contains reports whether key is cached without touching its recency.
func (c *Cache[V]) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Invalidate removes a single entry from the cache.
func (c *Cache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// Clear removes all entries from the cache.
func (c *Cache[V]) Clear() {
	c.lru.Purge()
}
