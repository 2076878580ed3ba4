package domain

import (
	"context"
)

// FetchOptions controls a single trend fetch.
// Empty fields fall back to the fetcher's configured defaults.
type FetchOptions struct {
	BaseURL  string
	Secret   string
	Force    bool
	CacheKey string
}

// TrendSource retrieves ranked trend items from the upstream aggregation service.
// Implementations: internal/infra/provider/proxygrid/
type TrendSource interface {
	// FetchTrends returns cached items when fresh, otherwise runs the resilient fetch.
	FetchTrends(ctx context.Context, opts FetchOptions) ([]TrendItem, error)

	// BreakerStates reports the state of every breaker the source owns.
	BreakerStates() []BreakerState

	// ClearCache removes cached responses whose key contains pattern, or all when empty.
	// Returns the number of removed entries.
	ClearCache(pattern string) int

	// CacheStats describes the cached responses.
	CacheStats() CacheStats
}

// TrendRepository persists trend snapshots.
// Implementations: internal/infra/postgres/repository.go
type TrendRepository interface {
	// UpsertTrends creates or updates the current rows keyed by platform and id.
	UpsertTrends(ctx context.Context, trends []*AudioTrend) error

	// AppendHistory records one snapshot row per item.
	AppendHistory(ctx context.Context, rows []HistoryRow) error

	// SaveSnapshot upserts trends and appends rows atomically.
	SaveSnapshot(ctx context.Context, trends []*AudioTrend, rows []HistoryRow) error

	// LatestHistory returns the most recent snapshot for each of the given ids.
	// Ids without history are absent from the map.
	LatestHistory(ctx context.Context, ids []string) (map[string]HistoryRow, error)

	// ListTop returns stored trends ordered by ascending rank.
	ListTop(ctx context.Context, params ListParams) ([]*AudioTrend, error)

	// GetByID returns a stored trend or ErrNotFound.
	GetByID(ctx context.Context, id string) (*AudioTrend, error)

	// History returns up to limit snapshots for id, newest first.
	History(ctx context.Context, id string, limit int) ([]HistoryRow, error)

	// Count returns the number of stored trends.
	Count(ctx context.Context) (int64, error)
}
