package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the local tier when configuration gives
	// no limit.
	DefaultMaxEntries = 1000

	// DefaultLocalTTL is the expire-after-write window for the local
	// tier.
	DefaultLocalTTL = time.Hour
)

type localEntry struct {
	key       string
	value     string
	expiresAt time.Time
	elem      *list.Element
}

// Local is the in-process tier: bounded, LRU by recency of use, with
// expire-after-write entries removed lazily on lookup. A read-write
// mutex guards the map and recency list; tallies live in Stats.
type Local struct {
	mu      sync.RWMutex
	entries map[string]*localEntry
	order   *list.List
	maxSize int
	ttl     time.Duration
	stats   *Stats
}

// NewLocal builds the tier. Non-positive maxSize or ttl fall back to
// the defaults.
func NewLocal(maxSize int, ttl time.Duration) *Local {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultLocalTTL
	}
	return &Local{
		entries: make(map[string]*localEntry),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		stats:   NewStats("l1"),
	}
}

// Get returns the cached value and refreshes its recency. Expired
// entries are removed and reported as misses.
func (c *Local) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	var value string
	var expired bool
	if ok {
		value = e.value
		expired = time.Now().After(e.expiresAt)
	}
	c.mu.RUnlock()

	if !ok {
		c.stats.RecordMiss()
		return "", false
	}
	if expired {
		c.mu.Lock()
		// Another goroutine may have refreshed or replaced the entry
		// since the read lock was dropped.
		if cur, ok := c.entries[key]; ok && cur == e && time.Now().After(cur.expiresAt) {
			c.removeLocked(cur)
			c.stats.RecordEviction()
		}
		c.mu.Unlock()
		c.stats.RecordMiss()
		return "", false
	}

	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && cur == e {
		c.order.MoveToFront(e.elem)
	}
	c.mu.Unlock()
	c.stats.RecordHit()
	return value, true
}

// Put stores key, evicting the least recently used entry at capacity.
// Overwriting refreshes the value, the TTL, and the recency.
func (c *Local) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.elem)
		return
	}
	if len(c.entries) >= c.maxSize {
		if back := c.order.Back(); back != nil {
			c.removeLocked(back.Value.(*localEntry))
			c.stats.RecordEviction()
		}
	}
	e := &localEntry{key: key, value: value, expiresAt: expiresAt}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	c.stats.SetSize(int64(len(c.entries)))
}

// Evict removes key and reports whether it was present.
func (c *Local) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// Clear drops every entry.
func (c *Local) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*localEntry)
	c.order.Init()
	c.stats.SetSize(0)
}

// Contains reports whether key is present and fresh, without touching
// recency or the tallies.
func (c *Local) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && !time.Now().After(e.expiresAt)
}

// Len returns the current entry count.
func (c *Local) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats exposes the tier's tallies.
func (c *Local) Stats() *Stats { return c.stats }

func (c *Local) removeLocked(e *localEntry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
	c.stats.SetSize(int64(len(c.entries)))
}
