// Package cache implements a keyed cache of long lived handles.
//
// Entries are created on first use by a CreateFunc, are never
// negatively cached, and live until they are deleted or, if an expire
// duration is set, until they haven't been used for that long.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Cache holds values indexed by string
type Cache[V any] struct {
	mu             sync.Mutex
	clock          clock.Clock
	cache          map[string]*cacheEntry[V]
	expireRunning  bool
	expireDuration time.Duration // expire the cache entry when unused for longer than this, 0 for never
	expireInterval time.Duration // interval to run the cache expire
	metrics        *Metrics
	name           string
}

// cacheEntry is stored in the cache
type cacheEntry[V any] struct {
	value    V         // cached item
	lastUsed time.Time // time used for expiry
}

// CreateFunc is called to create new values.  An error is returned
// to the caller and nothing is stored so the next Get tries again.
type CreateFunc[V any] func(key string) (value V, err error)

// New creates a new cache called name which never expires its entries
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		clock:          clock.New(),
		cache:          map[string]*cacheEntry[V]{},
		expireInterval: 60 * time.Second,
		metrics:        DefaultMetrics,
		name:           name,
	}
}

// SetExpireDuration sets how long an entry may go unused before it is
// removed.  0 or less disables expiry.
func (c *Cache[V]) SetExpireDuration(d time.Duration) *Cache[V] {
	c.mu.Lock()
	c.expireDuration = d
	c.mu.Unlock()
	return c
}

// SetExpireInterval sets the interval at which the cache expiry runs
func (c *Cache[V]) SetExpireInterval(d time.Duration) *Cache[V] {
	c.mu.Lock()
	c.expireInterval = d
	c.mu.Unlock()
	return c
}

// SetClock replaces the clock used for expiry
func (c *Cache[V]) SetClock(clk clock.Clock) *Cache[V] {
	c.mu.Lock()
	c.clock = clk
	c.mu.Unlock()
	return c
}

// used marks an entry as accessed now and kicks the expire timer off
// should be called with the lock held
func (c *Cache[V]) used(entry *cacheEntry[V]) {
	entry.lastUsed = c.clock.Now()
	if c.expireDuration > 0 && !c.expireRunning {
		c.clock.AfterFunc(c.expireInterval, c.cacheExpire)
		c.expireRunning = true
	}
}

// Get gets a value named key either from the cache or creates it
// afresh with the create function.
//
// create is called without the lock held.  If another caller stored
// key in the meantime that value wins and the new one is discarded.
func (c *Cache[V]) Get(key string, create CreateFunc[V]) (value V, err error) {
	c.mu.Lock()
	entry, ok := c.cache[key]
	if ok {
		c.used(entry)
		c.mu.Unlock()
		c.metrics.hit(c.name)
		return entry.value, nil
	}
	c.mu.Unlock()

	value, err = create(key)
	if err != nil {
		c.metrics.createError(c.name)
		return value, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[key]; ok {
		c.used(existing)
		return existing.value, nil
	}
	entry = &cacheEntry[V]{value: value}
	c.cache[key] = entry
	c.used(entry)
	c.metrics.created(c.name, len(c.cache))
	return value, nil
}

// GetMaybe returns the value and true if found, the zero value and
// false if not
func (c *Cache[V]) GetMaybe(key string) (value V, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.cache[key]
	if !found {
		return value, false
	}
	c.used(entry)
	return entry.value, true
}

// Put puts a value named key into the cache
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &cacheEntry[V]{value: value}
	c.used(entry)
	c.cache[key] = entry
	c.metrics.setEntries(c.name, len(c.cache))
}

// Delete the entry passed in
//
// Returns true if the entry was found
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.cache[key]
	delete(c.cache, key)
	c.metrics.setEntries(c.name, len(c.cache))
	return found
}

// cacheExpire expires any entries that haven't been used recently
func (c *Cache[V]) cacheExpire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	for key, entry := range c.cache {
		if c.expireDuration > 0 && now.Sub(entry.lastUsed) > c.expireDuration {
			delete(c.cache, key)
		}
	}
	c.metrics.setEntries(c.name, len(c.cache))
	if len(c.cache) != 0 && c.expireDuration > 0 {
		c.clock.AfterFunc(c.expireInterval, c.cacheExpire)
		c.expireRunning = true
	} else {
		c.expireRunning = false
	}
}

// Clear removes everything from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	for k := range c.cache {
		delete(c.cache, k)
	}
	c.metrics.setEntries(c.name, 0)
	c.mu.Unlock()
}

// Entries returns the number of entries in the cache
func (c *Cache[V]) Entries() int {
	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	return entries
}

// Keys returns the keys in the cache in sorted order
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.cache))
	for k := range c.cache {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}
