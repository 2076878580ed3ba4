package proxygrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"audio-trends-service/internal/domain"
)

func TestResponseCache_LazyExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := newResponseCache(func() time.Time { return now })

	c.set("k", []domain.TrendItem{{ID: "1"}}, now.Add(time.Minute))

	items, ok := c.get("k")
	assert.True(t, ok)
	assert.Len(t, items, 1)

	now = now.Add(2 * time.Minute)

	stats := c.stats()
	assert.Equal(t, 1, stats.Size)
	assert.True(t, stats.Entries[0].IsExpired)

	_, ok = c.get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.stats().Size, "expired entry is dropped on read")
}

func TestResponseCache_SetStoresCopy(t *testing.T) {
	now := time.Now()
	c := newResponseCache(func() time.Time { return now })

	src := []domain.TrendItem{{ID: "1", Title: "before"}}
	c.set("k", src, now.Add(time.Hour))
	src[0].Title = "after"

	items, ok := c.get("k")
	assert.True(t, ok)
	assert.Equal(t, "before", items[0].Title)
}

func TestResponseCache_NilStoredAsEmpty(t *testing.T) {
	now := time.Now()
	c := newResponseCache(func() time.Time { return now })

	c.set("k", nil, now.Add(time.Hour))

	items, ok := c.get("k")
	assert.True(t, ok)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
