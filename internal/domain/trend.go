// Package domain contains the core trend entities and the rules that act on them.
// This package has no external dependencies (only stdlib).
package domain

import (
	"time"
)

// PlatformTikTok is the only platform the ingestion pipeline currently tracks.
const PlatformTikTok = "tiktok"

// TrendItem is one ranked entry returned by the upstream aggregation service.
// Within one fetch result IDs are unique and items are ordered by ascending Rank.
type TrendItem struct {
	ID        string `json:"id"`
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PlayCount int64  `json:"play_count"`
	CoverURL  string `json:"cover_url"`
}

// HistoryRow is a previously recorded snapshot of one item.
// PlayCount and Rank are nil when the snapshot did not carry them.
type HistoryRow struct {
	ID         string    `json:"id"`
	PlayCount  *int64    `json:"play_count"`
	Rank       *int      `json:"rank"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// AudioTrend is the persisted, current view of a trend item.
type AudioTrend struct {
	Platform   string    `json:"platform"`
	ID         string    `json:"id"`
	Rank       int       `json:"rank"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	PlayCount  int64     `json:"play_count"`
	CoverURL   string    `json:"cover_url"`
	GrowthRate float64   `json:"growth_rate"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAudioTrend builds the persisted view of item at the given snapshot time.
func NewAudioTrend(item TrendItem, growthRate float64, at time.Time) *AudioTrend {
	return &AudioTrend{
		Platform:   PlatformTikTok,
		ID:         item.ID,
		Rank:       item.Rank,
		Title:      item.Title,
		Author:     item.Author,
		PlayCount:  item.PlayCount,
		CoverURL:   item.CoverURL,
		GrowthRate: growthRate,
		UpdatedAt:  at.UTC(),
	}
}

// Snapshot returns the history row recorded for item at the given time.
func Snapshot(item TrendItem, at time.Time) HistoryRow {
	playCount := item.PlayCount
	rank := item.Rank

	return HistoryRow{
		ID:         item.ID,
		PlayCount:  &playCount,
		Rank:       &rank,
		SnapshotAt: at.UTC(),
	}
}

// IDs returns the identifiers of items in order.
func IDs(items []TrendItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	return ids
}
