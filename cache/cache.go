// Package cache provides the process-wide TTL cache that fronts outbound
// third-party API calls.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 500
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a key/value store with per-entry expiry and a maximum entry count.
// Under capacity pressure entries are evicted oldest-inserted first; a Set on
// an existing key refreshes its value and expiry but keeps its position.
type Cache[V any] struct {
	ttl        time.Duration
	maxEntries int
	nowTime    func() time.Time

	mu      sync.Mutex
	order   *list.List // front is the oldest inserted key
	entries map[string]*list.Element
}

// Option modifies a Cache at construction.
type Option[V any] func(*Cache[V])

// WithNowTime sets the clock (primarily for testing)
func WithNowTime[V any](nowFunc func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.nowTime = nowFunc
	}
}

// New creates a cache. Non-positive ttl or maxEntries fall back to the defaults.
func New[V any](ttl time.Duration, maxEntries int, options ...Option[V]) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		nowTime:    time.Now,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns the value for key. An expired entry is removed and reported absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !c.nowTime().Before(e.expiresAt) {
		c.removeElement(el)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. A non-positive ttl uses the default.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.nowTime().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
	} else {
		c.entries[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	}
	c.prune()
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) prune() {
	for len(c.entries) > c.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
	}
}

func (c *Cache[V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[V])
	delete(c.entries, e.key)
}
