package postgres

import (
	"time"

	"audio-trends-service/internal/domain"
)

// AudioTrendModel is the GORM model for the audio_trends table.
type AudioTrendModel struct {
	Platform   string    `gorm:"type:varchar(20);primaryKey"`
	ID         string    `gorm:"column:id;type:varchar(100);primaryKey"`
	Title      string    `gorm:"type:varchar(500);not null"`
	Author     string    `gorm:"type:varchar(300);not null"`
	PlayCount  int64     `gorm:"not null;default:0"`
	Rank       int       `gorm:"not null"`
	GrowthRate float64   `gorm:"type:double precision;not null;default:0"`
	CoverURL   string    `gorm:"column:cover_url;type:text;not null;default:''"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM.
func (AudioTrendModel) TableName() string {
	return "audio_trends"
}

// ToDomain converts the GORM model to a domain entity.
func (m *AudioTrendModel) ToDomain() *domain.AudioTrend {
	return &domain.AudioTrend{
		Platform:   m.Platform,
		ID:         m.ID,
		Rank:       m.Rank,
		Title:      m.Title,
		Author:     m.Author,
		PlayCount:  m.PlayCount,
		CoverURL:   m.CoverURL,
		GrowthRate: m.GrowthRate,
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

// AudioTrendFromDomain converts a domain entity to the GORM model.
func AudioTrendFromDomain(t *domain.AudioTrend) *AudioTrendModel {
	platform := t.Platform
	if platform == "" {
		platform = domain.PlatformTikTok
	}

	return &AudioTrendModel{
		Platform:   platform,
		ID:         t.ID,
		Title:      t.Title,
		Author:     t.Author,
		PlayCount:  t.PlayCount,
		Rank:       t.Rank,
		GrowthRate: t.GrowthRate,
		CoverURL:   t.CoverURL,
		UpdatedAt:  t.UpdatedAt,
	}
}

// HistoryModel is the GORM model for the audio_trend_history table.
type HistoryModel struct {
	HistoryID  int64     `gorm:"column:history_id;primaryKey;autoIncrement"`
	Platform   string    `gorm:"type:varchar(20);not null"`
	TrendID    string    `gorm:"column:id;type:varchar(100);not null"`
	Rank       *int      `gorm:"column:rank"`
	PlayCount  *int64    `gorm:"column:play_count"`
	SnapshotAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM.
func (HistoryModel) TableName() string {
	return "audio_trend_history"
}

// ToDomain converts the GORM model to a domain history row.
func (m *HistoryModel) ToDomain() domain.HistoryRow {
	return domain.HistoryRow{
		ID:         m.TrendID,
		PlayCount:  m.PlayCount,
		Rank:       m.Rank,
		SnapshotAt: m.SnapshotAt.UTC(),
	}
}

// HistoryFromDomain converts a domain history row to the GORM model.
func HistoryFromDomain(row domain.HistoryRow) *HistoryModel {
	return &HistoryModel{
		Platform:   domain.PlatformTikTok,
		TrendID:    row.ID,
		Rank:       row.Rank,
		PlayCount:  row.PlayCount,
		SnapshotAt: row.SnapshotAt,
	}
}
