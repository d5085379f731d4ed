package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a bounded LRU whose entries also expire after a fixed duration.
// Safe for concurrent use.
type TTL[V any] struct {
	lru *lru.Cache[string, item[V]]
	ttl time.Duration
	now func() time.Time
}

func NewTTL[V any](size int, ttl time.Duration) (*TTL[V], error) {
	l, err := lru.New[string, item[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTL[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *TTL[V]) Set(key string, value V) {
	c.lru.Add(key, item[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get returns the cached value; expired entries are evicted and reported missing.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	it, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(it.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

func (c *TTL[V]) Purge() {
	c.lru.Purge()
}
