package proxygrid

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"audio-trends-service/internal/domain"
)

// CacheEntry is one cached fetch result.
type CacheEntry struct {
	Data      []domain.TrendItem
	ExpiresAt time.Time
}

// responseCache is a process-local TTL cache keyed by cache key.
// Expired entries are removed lazily when read.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	now     func() time.Time
}

func newResponseCache(now func() time.Time) *responseCache {
	return &responseCache{
		entries: make(map[string]CacheEntry),
		now:     now,
	}
}

// get returns a copy of the cached items when the entry is still fresh.
func (c *responseCache) get(key string) ([]domain.TrendItem, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock, a concurrent fetch may have refreshed it.
		if current, exists := c.entries[key]; exists && !c.now().Before(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		return nil, false
	}

	return slices.Clone(entry.Data), true
}

func (c *responseCache) set(key string, items []domain.TrendItem, expiresAt time.Time) {
	data := slices.Clone(items)
	if data == nil {
		data = []domain.TrendItem{}
	}

	c.mu.Lock()
	c.entries[key] = CacheEntry{Data: data, ExpiresAt: expiresAt}
	c.mu.Unlock()
}

// clear removes entries whose key contains pattern, or every entry when pattern is empty.
func (c *responseCache) clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		clear(c.entries)
		return n
	}

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

func (c *responseCache) stats() domain.CacheStats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := domain.CacheStats{
		Size:    len(c.entries),
		Keys:    make([]string, 0, len(c.entries)),
		Entries: make([]domain.CacheEntryStats, 0, len(c.entries)),
	}

	for key := range c.entries {
		stats.Keys = append(stats.Keys, key)
	}
	sort.Strings(stats.Keys)

	for _, key := range stats.Keys {
		entry := c.entries[key]
		stats.Entries = append(stats.Entries, domain.CacheEntryStats{
			Key:       key,
			Size:      len(entry.Data),
			ExpiresAt: entry.ExpiresAt,
			IsExpired: entry.ExpiresAt.Before(now),
		})
	}

	return stats
}
