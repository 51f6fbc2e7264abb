// Package cache provides an LRU cache for query results, keyed by the
// canonical query text plus the execution options that shaped the result.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hyperdim/hdql/result"
)

// Key identifies a cached result. Query is the canonical (unparsed) query
// text; Variant fingerprints the options that affect the outcome.
type Key struct {
	Query   string
	Variant string
}

// ResultCache is a fixed-capacity LRU over query results.
type ResultCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[Key]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value result.QueryResult
}

// New creates a cache holding at most capacity results. A non-positive
// capacity disables caching.
func New(capacity int) *ResultCache {
	return &ResultCache{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached result.
func (c *ResultCache) Get(key Key) (result.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a result, evicting the least recently used entry when full.
func (c *ResultCache) Set(key Key, value result.QueryResult) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry).value = value
		return
	}

	for c.evictList.Len() >= c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}

	c.items[key] = c.evictList.PushFront(&entry{key, value})
}

// Invalidate removes entries matching the predicate. Call it with a nil
// predicate to drop everything, typically after the store changes.
func (c *ResultCache) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate == nil || predicate(key) {
			toRemove = append(toRemove, element)
		}
	}

	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats reports hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*entry).key)
}
