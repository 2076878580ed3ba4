package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"audio-trends-service/internal/domain"
)

const batchSize = 100

// Repository implements domain.TrendRepository using PostgreSQL.
type Repository struct {
	db       *gorm.DB
	platform string
}

// NewRepository creates a new PostgreSQL repository scoped to the TikTok platform.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, platform: domain.PlatformTikTok}
}

// UpsertTrends inserts new trends and updates existing ones in batches.
func (r *Repository) UpsertTrends(ctx context.Context, trends []*domain.AudioTrend) error {
	return upsertTrends(r.db.WithContext(ctx), trends)
}

func upsertTrends(tx *gorm.DB, trends []*domain.AudioTrend) error {
	if len(trends) == 0 {
		return nil
	}

	models := make([]*AudioTrendModel, len(trends))
	for i, t := range trends {
		models[i] = AudioTrendFromDomain(t)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "author", "play_count", "rank", "growth_rate", "cover_url", "updated_at",
		}),
	}).CreateInBatches(models, batchSize).Error
	if err != nil {
		return fmt.Errorf("upserting trends: %w", err)
	}

	return nil
}

// AppendHistory records one snapshot row per item.
func (r *Repository) AppendHistory(ctx context.Context, rows []domain.HistoryRow) error {
	return appendHistory(r.db.WithContext(ctx), rows)
}

func appendHistory(tx *gorm.DB, rows []domain.HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	models := make([]*HistoryModel, len(rows))
	for i, row := range rows {
		models[i] = HistoryFromDomain(row)
	}

	if err := tx.CreateInBatches(models, batchSize).Error; err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	return nil
}

// SaveSnapshot upserts trends and appends their history rows in one transaction.
func (r *Repository) SaveSnapshot(ctx context.Context, trends []*domain.AudioTrend, rows []domain.HistoryRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertTrends(tx, trends); err != nil {
			return err
		}
		return appendHistory(tx, rows)
	})
}

// LatestHistory returns the newest snapshot for each id that has one.
func (r *Repository) LatestHistory(ctx context.Context, ids []string) (map[string]domain.HistoryRow, error) {
	latest := make(map[string]domain.HistoryRow, len(ids))
	if len(ids) == 0 {
		return latest, nil
	}

	var models []HistoryModel
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (id) history_id, platform, id, rank, play_count, snapshot_at
		FROM audio_trend_history
		WHERE platform = ? AND id IN ?
		ORDER BY id, snapshot_at DESC, history_id DESC
	`, r.platform, ids).Scan(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading latest history: %w", err)
	}

	for i := range models {
		row := models[i].ToDomain()
		latest[row.ID] = row
	}

	return latest, nil
}

// ListTop returns stored trends ordered by ascending rank.
func (r *Repository) ListTop(ctx context.Context, params domain.ListParams) ([]*domain.AudioTrend, error) {
	params.Validate()

	var models []AudioTrendModel
	err := r.db.WithContext(ctx).
		Where("platform = ?", r.platform).
		Order("rank ASC").
		Order("id ASC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing trends: %w", err)
	}

	trends := make([]*domain.AudioTrend, len(models))
	for i := range models {
		trends[i] = models[i].ToDomain()
	}

	return trends, nil
}

// GetByID retrieves a single stored trend.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.AudioTrend, error) {
	var model AudioTrendModel

	err := r.db.WithContext(ctx).
		Where("platform = ? AND id = ?", r.platform, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting trend by id: %w", err)
	}

	return model.ToDomain(), nil
}

// History returns up to limit snapshots for id, newest first.
func (r *Repository) History(ctx context.Context, id string, limit int) ([]domain.HistoryRow, error) {
	if limit < 1 {
		limit = domain.DefaultHistoryLimit
	}

	var models []HistoryModel
	err := r.db.WithContext(ctx).
		Where("platform = ? AND id = ?", r.platform, id).
		Order("snapshot_at DESC").
		Order("history_id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	rows := make([]domain.HistoryRow, len(models))
	for i := range models {
		rows[i] = models[i].ToDomain()
	}

	return rows, nil
}

// Count returns the number of stored trends.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AudioTrendModel{}).
		Where("platform = ?", r.platform).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting trends: %w", err)
	}

	return count, nil
}
