package dto

import (
	"time"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/domain"
)

// TrendItemResponse is one live trend entry.
type TrendItemResponse struct {
	ID        string `json:"id"`
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PlayCount int64  `json:"play_count"`
	CoverURL  string `json:"cover_url"`
}

// TrendsResponse is the live trend list. Available is false when the upstream
// could not be reached and Items is empty for that reason.
type TrendsResponse struct {
	Items     []TrendItemResponse `json:"items"`
	Count     int                 `json:"count"`
	Available bool                `json:"available"`
	Message   string              `json:"message,omitempty"`
}

// FromTrendItems converts fetched items, keeping at most limit when limit > 0.
func FromTrendItems(items []domain.TrendItem, limit int) TrendsResponse {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	resp := TrendsResponse{
		Items:     make([]TrendItemResponse, len(items)),
		Count:     len(items),
		Available: true,
	}
	for i, it := range items {
		resp.Items[i] = TrendItemResponse{
			ID:        it.ID,
			Rank:      it.Rank,
			Title:     it.Title,
			Author:    it.Author,
			PlayCount: it.PlayCount,
			CoverURL:  it.CoverURL,
		}
	}

	return resp
}

// UnavailableTrends is returned when the upstream is down.
func UnavailableTrends() TrendsResponse {
	return TrendsResponse{
		Items:     []TrendItemResponse{},
		Available: false,
		Message:   "Trend data is temporarily unavailable",
	}
}

// AudioResponse is one stored trend.
type AudioResponse struct {
	Platform   string  `json:"platform"`
	ID         string  `json:"id"`
	Rank       int     `json:"rank"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	PlayCount  int64   `json:"play_count"`
	GrowthRate float64 `json:"growth_rate"`
	CoverURL   string  `json:"cover_url"`
	UpdatedAt  string  `json:"updated_at"`
}

// FromDomainAudio converts domain.AudioTrend to AudioResponse.
func FromDomainAudio(t *domain.AudioTrend) AudioResponse {
	return AudioResponse{
		Platform:   t.Platform,
		ID:         t.ID,
		Rank:       t.Rank,
		Title:      t.Title,
		Author:     t.Author,
		PlayCount:  t.PlayCount,
		GrowthRate: t.GrowthRate,
		CoverURL:   t.CoverURL,
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}

// AudioListResponse is a page of stored trends.
type AudioListResponse struct {
	Items  []AudioResponse `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// FromDomainAudioList converts a page of stored trends.
func FromDomainAudioList(trends []*domain.AudioTrend, total int64, params domain.ListParams) AudioListResponse {
	items := make([]AudioResponse, len(trends))
	for i, t := range trends {
		items[i] = FromDomainAudio(t)
	}

	return AudioListResponse{Items: items, Total: total, Limit: params.Limit, Offset: params.Offset}
}

// SnapshotResponse is one history row. Missing values are null.
type SnapshotResponse struct {
	SnapshotAt string `json:"snapshot_at"`
	Rank       *int   `json:"rank"`
	PlayCount  *int64 `json:"play_count"`
}

// FromHistory converts history rows.
func FromHistory(rows []domain.HistoryRow) []SnapshotResponse {
	out := make([]SnapshotResponse, len(rows))
	for i, r := range rows {
		out[i] = SnapshotResponse{
			SnapshotAt: r.SnapshotAt.Format(time.RFC3339),
			Rank:       r.Rank,
			PlayCount:  r.PlayCount,
		}
	}

	return out
}

// AudioDetailResponse is a stored trend with its history.
type AudioDetailResponse struct {
	AudioResponse
	History []SnapshotResponse `json:"history"`
}

// FromAudioDetail converts service.AudioDetail.
func FromAudioDetail(d *service.AudioDetail) AudioDetailResponse {
	return AudioDetailResponse{
		AudioResponse: FromDomainAudio(d.Trend),
		History:       FromHistory(d.History),
	}
}

// HistoryResponse is the snapshot history of one trend.
type HistoryResponse struct {
	ID      string             `json:"id"`
	History []SnapshotResponse `json:"history"`
}

// RefreshResponse reports a manual refresh.
type RefreshResponse struct {
	Count      int    `json:"count"`
	NewEntries int    `json:"new_entries"`
	Duration   string `json:"duration"`
}

// FromRefreshResult converts service.RefreshResult.
func FromRefreshResult(r service.RefreshResult) RefreshResponse {
	return RefreshResponse{
		Count:      r.Count,
		NewEntries: r.NewEntries,
		Duration:   r.Duration.String(),
	}
}

// BreakerResponse is the state of one circuit breaker.
type BreakerResponse struct {
	Name            string `json:"name"`
	State           string `json:"state"`
	IsOpen          bool   `json:"is_open"`
	FailureCount    int    `json:"failure_count"`
	LastFailureTime string `json:"last_failure_time,omitempty"`
	NextAttemptTime string `json:"next_attempt_time,omitempty"`
	TimeUntilReset  string `json:"time_until_reset"`
}

// FromBreakerStates converts breaker diagnostics.
func FromBreakerStates(states []domain.BreakerState) []BreakerResponse {
	out := make([]BreakerResponse, len(states))
	for i, s := range states {
		out[i] = BreakerResponse{
			Name:            s.Name,
			State:           s.State,
			IsOpen:          s.IsOpen,
			FailureCount:    s.FailureCount,
			LastFailureTime: formatOptional(s.LastFailureTime),
			NextAttemptTime: formatOptional(s.NextAttemptTime),
			TimeUntilReset:  s.TimeUntilReset.String(),
		}
	}

	return out
}

// ClearCacheResponse reports how many cached responses were dropped.
type ClearCacheResponse struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
