package web

import (
	"sync"
	"time"

	"github.com/hpungsan/carbonmatch/internal/ops"
)

// resultCache keeps recent runs in memory so the result page can re-filter
// and export without re-uploading. Entries expire ttl after their last use;
// when full, the entry closest to expiry is dropped.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]*cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	out     *ops.MatchOutput
	expires time.Time
}

func newResultCache(ttl time.Duration, max int) *resultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if max <= 0 {
		max = 1
	}
	return &resultCache{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Put stores out under out.ID.
func (c *resultCache) Put(out *ops.MatchOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	for len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[out.ID] = &cacheEntry{out: out, expires: now.Add(c.ttl)}
}

// Get returns the run and extends its lifetime.
func (c *resultCache) Get(id string) (*ops.MatchOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expires) {
		delete(c.entries, id)
		return nil, false
	}
	e.expires = now.Add(c.ttl)
	return e.out, true
}

// Has reports whether id is cached, without touching it.
func (c *resultCache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return ok && c.now().Before(e.expires)
}

// Len is the number of live entries.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(c.now())
	return len(c.entries)
}

func (c *resultCache) expireLocked(now time.Time) {
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
}

func (c *resultCache) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range c.entries {
		if oldestID == "" || e.expires.Before(oldest) {
			oldestID, oldest = id, e.expires
		}
	}
	delete(c.entries, oldestID)
}
