package cache

// LRU cache with key of type uint64 and value of type []float64.
// This is a front end to the generic LRU from hashicorp/golang-lru.
// Safe for concurrent use.

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Cache struct {
	lruCache *lru.Cache[uint64, []float64]
	capacity uint64
	hits     atomic.Uint64
	misses   atomic.Uint64
}

func NewCache(cap uint64) *Cache {

	if cap == 0 {
		cap = 1
	}
	c, err := lru.New[uint64, []float64](int(cap))
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Cache{
		lruCache: c,
		capacity: cap,
	}
}

func (c *Cache) Stats() (size, capacity, hits, misses uint64) {

	return uint64(c.lruCache.Len()), c.capacity, c.hits.Load(), c.misses.Load()
}

func (c *Cache) Set(n uint64, v []float64) {
	c.lruCache.Add(n, v)
}

func (c *Cache) SetIfAbsent(n uint64, v []float64) {
	c.lruCache.ContainsOrAdd(n, v)
}

func (c *Cache) Get(n uint64) (v []float64, ok bool) {

	v, ok = c.lruCache.Get(n)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return
}

// GetOrCompute returns the cached value for n, calling fn and caching its
// result on a miss. Concurrent misses on the same key may call fn more
// than once; fn must be deterministic.
func (c *Cache) GetOrCompute(n uint64, fn func() []float64) []float64 {

	if v, ok := c.Get(n); ok {
		return v
	}
	v := fn()
	c.SetIfAbsent(n, v)
	return v
}

func (c *Cache) Delete(n uint64) bool {
	return c.lruCache.Remove(n)
}

func (c *Cache) Clear() {
	c.lruCache.Purge()
}
