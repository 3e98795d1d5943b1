package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache is a bounded in-memory cache whose entries expire after ttl. A zero
// ttl keeps entries until they are evicted or invalidated.
type Cache[V any] struct {
	store *lru.Cache
	ttl   time.Duration
	now   func() time.Time

	mu sync.Mutex
}

func NewCache[V any](size int, ttl time.Duration) (*Cache[V], error) {
	store, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("error creating cache: %w", err)
	}

	return &Cache[V]{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Get returns the cached value for key. Expired entries are removed and
// reported as missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}

	e := raw.(entry[V])
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.store.Remove(key)
		return zero, false
	}

	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.store.Add(key, entry[V]{value: value, createdAt: c.now()})
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Concurrent misses for the same cache are serialized so load runs once.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

func (c *Cache[V]) Invalidate(key string) {
	c.store.Remove(key)
}

func (c *Cache[V]) Purge() {
	c.store.Purge()
}

func (c *Cache[V]) Len() int {
	return c.store.Len()
}
