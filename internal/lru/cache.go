package lru

import (
	"container/list"
	"errors"
	"time"
)

// ErrInvalidCapacity is returned when a cache is constructed with capacity <= 0
var ErrInvalidCapacity = errors.New("cache capacity must be greater than zero")

// statsKeyPrefix is the number of characters of a key exposed by Stats
const statsKeyPrefix = 20

// Entry is a single key/value pair held by the cache
type Entry[V any] struct {
	Key       string
	Value     V
	UpdatedAt time.Time
}

// Stats is a read-only snapshot of the cache state
type Stats struct {
	Size                 int    `json:"size"`
	Capacity             int    `json:"capacity"`
	MostRecentKeyPrefix  string `json:"most_recent_key_prefix"`
	LeastRecentKeyPrefix string `json:"least_recent_key_prefix"`
}

// Cache is a fixed-capacity key/value store with strict least-recently-used
// eviction. The front of the recency list is the most recently used entry.
// Cache is not safe for concurrent use; its owner serializes access.
type Cache[V any] struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp entries
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates an empty cache holding at most capacity entries
func New[V any](capacity int, opts ...Option) (*Cache[V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      o.now,
	}, nil
}

// Get returns the value for key and marks it most recently used
func (c *Cache[V]) Get(key string) (V, bool) {
	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*Entry[V]).Value, true
}

// Has reports whether key is cached without touching the recency order
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Set inserts or replaces the value for key, stamped with the current time
func (c *Cache[V]) Set(key string, value V) {
	c.SetAt(key, value, c.now())
}

// SetAt behaves like Set but records the given update time. It is used when
// replaying persisted entries so that their original age is preserved.
func (c *Cache[V]) SetAt(key string, value V, updatedAt time.Time) {
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*Entry[V])
		entry.Value = value
		entry.UpdatedAt = updatedAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&Entry[V]{
		Key:       key,
		Value:     value,
		UpdatedAt: updatedAt,
	})
}

// evictOldest drops the least recently used entry
func (c *Cache[V]) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	delete(c.items, back.Value.(*Entry[V]).Key)
}

// Clear removes every entry
func (c *Cache[V]) Clear() {
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Len returns the number of entries held
func (c *Cache[V]) Len() int {
	return c.order.Len()
}

// Capacity returns the maximum number of entries
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Entries returns a copy of every entry ordered from least to most recently
// used, so that replaying them through Set reproduces the recency order.
func (c *Cache[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], 0, c.order.Len())
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		entries = append(entries, *elem.Value.(*Entry[V]))
	}
	return entries
}

// Stats returns a read-only view of the cache for observability
func (c *Cache[V]) Stats() Stats {
	stats := Stats{
		Size:     c.order.Len(),
		Capacity: c.capacity,
	}
	if front := c.order.Front(); front != nil {
		stats.MostRecentKeyPrefix = keyPrefix(front.Value.(*Entry[V]).Key)
	}
	if back := c.order.Back(); back != nil {
		stats.LeastRecentKeyPrefix = keyPrefix(back.Value.(*Entry[V]).Key)
	}
	return stats
}

func keyPrefix(key string) string {
	runes := []rune(key)
	if len(runes) <= statsKeyPrefix {
		return key
	}
	return string(runes[:statsKeyPrefix])
}
