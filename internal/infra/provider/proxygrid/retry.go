package proxygrid

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/infra/provider"
	"audio-trends-service/internal/metrics"
)

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxRetries int           // attempts after the first one
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap for any single delay
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newBackOff returns the delay schedule min(BaseDelay*2^i, MaxDelay) without jitter.
func (c RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	return b
}

type attemptFunc func(ctx context.Context) ([]domain.TrendItem, error)

// withRetry runs fn up to MaxRetries+1 times, sleeping between failed attempts.
// It returns *domain.UpstreamRequestFailedError carrying the last error once attempts are exhausted.
func (f *Fetcher) withRetry(ctx context.Context, fn attemptFunc) ([]domain.TrendItem, error) {
	attempts := f.cfg.Retry.MaxRetries + 1
	schedule := f.cfg.Retry.newBackOff()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		items, err := fn(ctx)
		metrics.RecordAttempt(provider.BreakerProxyGrid, err)
		if err == nil {
			return items, nil
		}
		lastErr = err

		f.logger.Warn("proxy grid attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempt == attempts-1 {
			break
		}

		delay := schedule.NextBackOff()
		if err := f.sleep(ctx, delay); err != nil {
			return nil, &domain.UpstreamRequestFailedError{Attempts: attempt + 1, Err: err}
		}
	}

	return nil, &domain.UpstreamRequestFailedError{Attempts: attempts, Err: lastErr}
}
