package provider

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/metrics"
)

// Breaker names for the upstream dependencies.
const (
	BreakerProxyGrid = "proxy_grid"
	BreakerRenderer  = "renderer"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures that open the breaker
	Timeout          time.Duration // cooldown before a probe is let through
	MaxRequests      uint32        // probe successes needed to close from half-open
}

// errProbeFailed reports a failed outcome to gobreaker.
var errProbeFailed = errors.New("upstream call failed")

// DefaultBreakerConfig returns the default threshold of 5 failures and a 60s cooldown.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		MaxRequests:      1,
	}
}

// Breaker is a two-step circuit breaker for one upstream dependency.
// Callers ask Allow before doing I/O and report the outcome through the returned func.
type Breaker struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.TwoStepCircuitBreaker[struct{}]
	logger  *zap.Logger

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	nextAttempt time.Time
}

// NewBreaker creates a new circuit breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	defaults := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}

	b := &Breaker{
		name:    name,
		timeout: cfg.Timeout,
		logger:  logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b.cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: b.onStateChange,
	})

	return b
}

// Name returns the dependency name.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a request may proceed.
// When the breaker is open it returns a *domain.UpstreamUnavailableError without doing any I/O.
// Half-open admits every caller; only the tracked probes decide the next state.
func (b *Breaker) Allow() (func(success bool), error) {
	done, err := b.cb.Allow()
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return func(bool) {}, nil
	}
	if err != nil {
		retryIn := b.retryIn(time.Now())
		b.logger.Warn("circuit breaker rejected request",
			zap.String("breaker", b.name),
			zap.Error(err),
			zap.Duration("retry_in", retryIn),
		)

		return nil, &domain.UpstreamUnavailableError{Dependency: b.name, RetryIn: retryIn}
	}

	return func(success bool) {
		b.mu.Lock()
		if success {
			b.failures = 0
		} else {
			b.failures++
			b.lastFailure = time.Now()
		}
		b.mu.Unlock()

		if success {
			done(nil)
			return
		}
		done(errProbeFailed)
	}, nil
}

// State returns a snapshot of the breaker for diagnostics.
func (b *Breaker) State() domain.BreakerState {
	// Reading the state first lets gobreaker move open -> half-open after the cooldown.
	state := b.cb.State()
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	s := domain.BreakerState{
		Name:            b.name,
		State:           state.String(),
		IsOpen:          state == gobreaker.StateOpen,
		FailureCount:    b.failures,
		LastFailureTime: b.lastFailure,
	}

	if s.IsOpen {
		s.NextAttemptTime = b.nextAttempt
		if d := b.nextAttempt.Sub(now); d > 0 {
			s.TimeUntilReset = d
		}
	}

	return s
}

func (b *Breaker) retryIn(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d := b.nextAttempt.Sub(now); d > 0 {
		return d
	}

	return 0
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	if to == gobreaker.StateOpen {
		b.mu.Lock()
		b.nextAttempt = time.Now().Add(b.timeout)
		b.mu.Unlock()
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()

	b.logger.Info("circuit breaker state changed",
		zap.String("breaker", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
