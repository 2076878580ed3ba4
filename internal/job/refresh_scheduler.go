// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/pkg/locker"
)

const lockKey = "refresh:scheduler"

// Refresher runs one trend refresh.
type Refresher interface {
	Refresh(ctx context.Context) (service.RefreshResult, error)
}

// RefreshScheduler runs periodic trend refreshes with distributed locking
// so only one instance refreshes per interval.
type RefreshScheduler struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	locker    locker.DistributedLocker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RefreshConfig holds refresh scheduler configuration.
type RefreshConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	OnStartup bool
}

// NewRefreshScheduler creates a new RefreshScheduler.
func NewRefreshScheduler(
	refresher Refresher,
	cfg RefreshConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *RefreshScheduler {
	return &RefreshScheduler{
		refresher: refresher,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		logger:    logger,
		locker:    locker,
	}
}

// Start begins the background refresh loop.
func (s *RefreshScheduler) Start(runOnStartup bool) {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting refresh scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(ctx, runOnStartup)
}

// Stop cancels the loop and waits for an in-flight refresh to return.
func (s *RefreshScheduler) Stop() {
	s.logger.Info("stopping refresh scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("refresh scheduler stopped")
}

func (s *RefreshScheduler) run(ctx context.Context, runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executeRefresh(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.executeRefresh(ctx)
		}
	}
}

// executeRefresh performs one refresh under the distributed lock.
//
// Locking behavior:
//   - Lock TTL = interval (cooldown model)
//   - Success: lock held for the full interval so no other instance refreshes
//   - Failure: lock released immediately so another instance may retry
func (s *RefreshScheduler) executeRefresh(ctx context.Context) bool {
	acquired, err := s.locker.Acquire(ctx, lockKey, s.interval)
	if err != nil {
		s.logger.Error("failed to acquire distributed lock", zap.Error(err))
		return false
	}
	if !acquired {
		s.logger.Debug("another instance is refreshing, skipping execution")
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.refresher.Refresh(runCtx)
	if err != nil {
		if releaseErr := s.locker.Release(ctx, lockKey); releaseErr != nil {
			s.logger.Error("failed to release lock after refresh error", zap.Error(releaseErr))
		}
		s.logger.Warn("refresh failed, lock released for retry", zap.Error(err))
		return true
	}

	s.logger.Info("refresh completed, lock held for cooldown",
		zap.Int("count", result.Count),
		zap.Int("new_entries", result.NewEntries),
		zap.Duration("duration", result.Duration),
		zap.Duration("cooldown", s.interval),
	)

	return true
}
