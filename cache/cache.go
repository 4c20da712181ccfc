package cache

import (
	"container/list"
	"sync"
	"time"
)

// Clock lets tests control expiry
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stats is a snapshot of cache activity
type Stats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
	Entries   int `json:"entries"`
}

// entry represents a cached item with the time it was stored
type entry[K comparable, V any] struct {
	key       K
	value     V
	timestamp time.Time
}

// TTL is a concurrency-safe map whose entries expire after a fixed duration.
// When maxEntries is positive the least recently used entry is evicted on overflow.
type TTL[K comparable, V any] struct {
	mutex      sync.Mutex
	items      map[K]*list.Element
	order      *list.List // front is most recently used
	ttl        time.Duration
	maxEntries int
	clock      Clock
	hits       int
	misses     int
	evictions  int
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	maxEntries int
	clock      Clock
}

// WithMaxEntries caps the number of live entries
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewTTL creates a cache whose entries live for ttl
func NewTTL[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{clock: realClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[K, V]{
		items:      make(map[K]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: o.maxEntries,
		clock:      o.clock,
	}
}

// Get returns the value for key if present and not expired
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	elem, found := c.items[key]
	if !found {
		c.misses++
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if c.clock.Now().Sub(e.timestamp) >= c.ttl {
		c.removeElement(elem)
		c.misses++
		c.evictions++
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Age reports how long ago key was stored
func (c *TTL[K, V]) Age(key K) (time.Duration, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	elem, found := c.items[key]
	if !found {
		return 0, false
	}
	return c.clock.Now().Sub(elem.Value.(*entry[K, V]).timestamp), true
}

// Set stores value under key, replacing any previous value
func (c *TTL[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.clock.Now()
	if elem, found := c.items[key]; found {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.timestamp = now
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, timestamp: now})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
		c.evictions++
	}
}

// Delete removes key
func (c *TTL[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if elem, found := c.items[key]; found {
		c.removeElement(elem)
	}
}

// Evict drops every expired entry and returns how many were removed
func (c *TTL[K, V]) Evict() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.clock.Now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.Sub(elem.Value.(*entry[K, V]).timestamp) >= c.ttl {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	c.evictions += removed
	return removed
}

// Len returns the number of stored entries, expired ones included until evicted
func (c *TTL[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.order.Len()
}

// Stats returns hit, miss and eviction counters
func (c *TTL[K, V]) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Entries: c.order.Len()}
}

func (c *TTL[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
}
