// Package service orchestrates trend ingestion and lookups on top of the domain ports.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/metrics"
)

// MaxHistoryLimit caps how many snapshots a single history lookup returns.
const MaxHistoryLimit = 500

// TrendService fetches live trends, persists snapshots and serves stored views.
type TrendService struct {
	source domain.TrendSource
	repo   domain.TrendRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTrendService creates a new TrendService.
func NewTrendService(source domain.TrendSource, repo domain.TrendRepository, logger *zap.Logger) *TrendService {
	return &TrendService{
		source: source,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// RefreshResult holds the outcome of one refresh run.
type RefreshResult struct {
	Count      int           `json:"count"`
	NewEntries int           `json:"new_entries"`
	Duration   time.Duration `json:"duration"`
}

// AudioDetail is a stored trend with its recent snapshots.
type AudioDetail struct {
	Trend   *domain.AudioTrend  `json:"trend"`
	History []domain.HistoryRow `json:"history"`
}

// Current returns the live trend list, served from the fetcher cache unless force is set.
func (s *TrendService) Current(ctx context.Context, force bool) ([]domain.TrendItem, error) {
	return s.source.FetchTrends(ctx, domain.FetchOptions{Force: force})
}

// Refresh force-fetches the live list, scores growth against the latest snapshot of
// each item and stores the new snapshot.
// An empty live list leaves stored data untouched.
func (s *TrendService) Refresh(ctx context.Context) (result RefreshResult, err error) {
	start := s.now()
	defer func() {
		result.Duration = s.now().Sub(start)
		metrics.RecordRefresh(err, result.Duration.Seconds())
	}()

	items, err := s.source.FetchTrends(ctx, domain.FetchOptions{Force: true})
	if err != nil {
		return result, fmt.Errorf("fetching trends: %w", err)
	}
	if len(items) == 0 {
		s.logger.Warn("refresh fetched no trends, keeping stored snapshot")
		return result, nil
	}

	latest, err := s.repo.LatestHistory(ctx, domain.IDs(items))
	if err != nil {
		return result, fmt.Errorf("loading latest history: %w", err)
	}

	at := s.now()
	trends := make([]*domain.AudioTrend, 0, len(items))
	rows := make([]domain.HistoryRow, 0, len(items))

	for _, item := range items {
		var previous *domain.HistoryRow
		if row, ok := latest[item.ID]; ok {
			previous = &row
		} else {
			result.NewEntries++
		}

		trends = append(trends, domain.NewAudioTrend(item, domain.CalculateGrowthRate(item, previous), at))
		rows = append(rows, domain.Snapshot(item, at))
	}

	if err := s.repo.SaveSnapshot(ctx, trends, rows); err != nil {
		return result, fmt.Errorf("saving snapshot: %w", err)
	}
	result.Count = len(trends)

	s.logger.Info("trend refresh completed",
		zap.Int("count", result.Count),
		zap.Int("new_entries", result.NewEntries),
	)

	return result, nil
}

// Top returns stored trends ordered by rank.
func (s *TrendService) Top(ctx context.Context, params domain.ListParams) ([]*domain.AudioTrend, error) {
	params.Validate()
	return s.repo.ListTop(ctx, params)
}

// Stored returns how many trends are in the repository.
func (s *TrendService) Stored(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Audio returns one stored trend with up to historyLimit snapshots.
func (s *TrendService) Audio(ctx context.Context, id string, historyLimit int) (*AudioDetail, error) {
	trend, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.History(ctx, id, historyLimit)
	if err != nil {
		return nil, err
	}

	return &AudioDetail{Trend: trend, History: history}, nil
}

// History returns snapshots for id, newest first.
func (s *TrendService) History(ctx context.Context, id string, limit int) ([]domain.HistoryRow, error) {
	if limit < 1 {
		limit = domain.DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	return s.repo.History(ctx, id, limit)
}
