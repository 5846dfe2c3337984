package transcripts

import (
	"sync"
	"time"
)

// statsCache memoizes computed statistics for a short TTL so dashboards polling the
// stats endpoint do not rescan the interactions table on every request.
type statsCache struct {
	entries map[int]*cacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	stats     *Stats
	expiresAt time.Time
}

func newStatsCache(ttl time.Duration, now func() time.Time) *statsCache {
	return &statsCache{
		entries: make(map[int]*cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get returns the cached stats for minScore if present and not expired
func (c *statsCache) get(minScore int) (*Stats, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[minScore]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.stats, true
}

func (c *statsCache) set(minScore int, stats *Stats) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[minScore] = &cacheEntry{stats: stats, expiresAt: c.now().Add(c.ttl)}
}

// invalidate drops every entry, called after the checkpoint moves
func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]*cacheEntry)
}

func (c *statsCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
