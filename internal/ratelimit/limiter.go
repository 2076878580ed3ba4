package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"audio-trends-service/internal/metrics"
)

// Algorithm selects how a Limiter counts requests.
type Algorithm string

const (
	AlgorithmFixedWindow   Algorithm = "fixed_window"
	AlgorithmSlidingWindow Algorithm = "sliding_window"
	AlgorithmTokenBucket   Algorithm = "token_bucket"
)

// ParseAlgorithm maps a config value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case AlgorithmFixedWindow, AlgorithmSlidingWindow, AlgorithmTokenBucket:
		return a, nil
	case "":
		return AlgorithmFixedWindow, nil
	default:
		return "", fmt.Errorf("unknown rate limit algorithm %q", s)
	}
}

// Result is the outcome of one check. RetryAfter is zero unless the request was denied.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	Reset      time.Time
	RetryAfter time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithAlgorithm selects the counting algorithm. The default is AlgorithmFixedWindow.
func WithAlgorithm(a Algorithm) Option {
	return func(l *Limiter) {
		l.algorithm = a
	}
}

// WithClock overrides the limiter's clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter enforces one Config against a Store.
type Limiter struct {
	cfg       Config
	store     Store
	algorithm Algorithm
	now       func() time.Time
}

// New creates a Limiter. cfg must be valid (see Config.Validate).
func New(cfg Config, store Store, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:       cfg,
		store:     store,
		algorithm: AlgorithmFixedWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Config returns the limit enforced by l.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Algorithm returns the counting algorithm used by l.
func (l *Limiter) Algorithm() Algorithm {
	return l.algorithm
}

// Check counts one request for identifier and reports whether it is allowed.
// Denials are results, not errors; an error means the store failed.
func (l *Limiter) Check(ctx context.Context, identifier string) (Result, error) {
	var (
		res Result
		err error
	)

	switch l.algorithm {
	case AlgorithmSlidingWindow:
		res, err = l.checkSlidingWindow(ctx, identifier)
	case AlgorithmTokenBucket:
		res, err = l.checkTokenBucket(ctx, identifier)
	default:
		res, err = l.checkFixedWindow(ctx, identifier)
	}
	if err != nil {
		return Result{}, fmt.Errorf("checking rate limit %s: %w", l.cfg.KeyPrefix, err)
	}

	metrics.RecordDecision(l.cfg.KeyPrefix, res.Allowed)

	return res, nil
}

// Reset clears the counters kept for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	keys := []string{l.fixedKey(identifier)}
	switch l.algorithm {
	case AlgorithmSlidingWindow:
		idx := l.windowIndex(l.now())
		keys = []string{l.slidingKey(identifier, idx), l.slidingKey(identifier, idx-1)}
	case AlgorithmTokenBucket:
		keys = []string{l.bucketKey(identifier)}
	}

	for _, key := range keys {
		if err := l.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("resetting rate limit %s: %w", key, err)
		}
	}

	return nil
}

func (l *Limiter) fixedKey(identifier string) string {
	return l.cfg.KeyPrefix + ":" + identifier
}

func (l *Limiter) slidingKey(identifier string, window int64) string {
	return l.cfg.KeyPrefix + ":sw:" + identifier + ":" + strconv.FormatInt(window, 10)
}

func (l *Limiter) bucketKey(identifier string) string {
	return l.cfg.KeyPrefix + ":tb:" + identifier
}

// checkFixedWindow counts requests in a window that starts with the first request
// and fully resets once it expires.
func (l *Limiter) checkFixedWindow(ctx context.Context, identifier string) (Result, error) {
	key := l.fixedKey(identifier)
	now := l.now()

	entry, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if entry == nil || entry.ExpiresAt.Before(now) {
		entry = &Counter{ExpiresAt: now.Add(l.cfg.Window)}
	}

	newCount := entry.Count + 1
	allowed := newCount <= l.cfg.Max

	if allowed {
		if err := l.store.Put(ctx, key, Counter{Count: newCount, ExpiresAt: entry.ExpiresAt}); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Allowed:   allowed,
		Limit:     l.cfg.Max,
		Remaining: max(0, l.cfg.Max-newCount),
		Reset:     entry.ExpiresAt,
	}
	if !allowed {
		res.RetryAfter = max(0, entry.ExpiresAt.Sub(now))
	}

	return res, nil
}

func (l *Limiter) windowIndex(t time.Time) int64 {
	return t.UnixNano() / int64(l.cfg.Window)
}

// checkSlidingWindow estimates the rolling count from the current fixed window
// plus the previous one weighted by how much of it still overlaps.
func (l *Limiter) checkSlidingWindow(ctx context.Context, identifier string) (Result, error) {
	now := l.now()
	idx := l.windowIndex(now)
	windowStart := time.Unix(0, idx*int64(l.cfg.Window))
	windowEnd := windowStart.Add(l.cfg.Window)

	curKey := l.slidingKey(identifier, idx)

	current, err := l.store.Get(ctx, curKey)
	if err != nil {
		return Result{}, err
	}
	previous, err := l.store.Get(ctx, l.slidingKey(identifier, idx-1))
	if err != nil {
		return Result{}, err
	}

	var curCount, prevCount int64
	if current != nil {
		curCount = current.Count
	}
	if previous != nil {
		prevCount = previous.Count
	}

	elapsed := float64(now.Sub(windowStart)) / float64(l.cfg.Window)
	estimate := float64(prevCount)*(1-elapsed) + float64(curCount)
	allowed := estimate < float64(l.cfg.Max)

	used := int64(math.Ceil(estimate))
	if allowed {
		used++
		// Kept for one extra window so the next one can weight it.
		if err := l.store.Put(ctx, curKey, Counter{Count: curCount + 1, ExpiresAt: windowEnd.Add(l.cfg.Window)}); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Allowed:   allowed,
		Limit:     l.cfg.Max,
		Remaining: max(0, l.cfg.Max-used),
		Reset:     windowEnd,
	}
	if !allowed {
		res.RetryAfter = l.slidingRetryAfter(now, windowStart, windowEnd, prevCount, curCount)
	}

	return res, nil
}

// slidingRetryAfter is the time until the weighted estimate drops below the limit
// within the current window, or until the window ends.
func (l *Limiter) slidingRetryAfter(now, windowStart, windowEnd time.Time, prevCount, curCount int64) time.Duration {
	untilEnd := windowEnd.Sub(now)
	if prevCount == 0 || curCount >= l.cfg.Max {
		return untilEnd
	}

	// prev*(1-f) + cur < max  <=>  f > 1 - (max-cur)/prev
	f := 1 - float64(l.cfg.Max-curCount)/float64(prevCount)
	at := windowStart.Add(time.Duration(f * float64(l.cfg.Window)))
	if wait := at.Sub(now); wait < untilEnd {
		return max(wait, time.Millisecond)
	}

	return untilEnd
}

// checkTokenBucket keeps the token count in Counter.Count and the last refill
// time as ExpiresAt minus the bucket TTL. The TTL covers a full refill from empty,
// so an entry never expires before the bucket is full again.
func (l *Limiter) checkTokenBucket(ctx context.Context, identifier string) (Result, error) {
	key := l.bucketKey(identifier)
	now := l.now()
	interval := l.cfg.refillInterval()
	ttl := l.cfg.bucketTTL()

	entry, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}

	tokens := l.cfg.Max
	lastRefill := now
	if entry != nil {
		tokens = entry.Count
		lastRefill = entry.ExpiresAt.Add(-ttl)
	}

	if elapsed := now.Sub(lastRefill); elapsed > 0 {
		earned := int64(elapsed / interval)
		tokens += earned
		lastRefill = lastRefill.Add(time.Duration(earned) * interval)
	}
	if tokens >= l.cfg.Max {
		tokens = l.cfg.Max
		lastRefill = now
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
		if err := l.store.Put(ctx, key, Counter{Count: tokens, ExpiresAt: lastRefill.Add(ttl)}); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Allowed:   allowed,
		Limit:     l.cfg.Max,
		Remaining: tokens,
		Reset:     lastRefill.Add(time.Duration(l.cfg.Max-tokens) * interval),
	}
	if !allowed {
		res.RetryAfter = max(0, lastRefill.Add(interval).Sub(now))
	}

	return res, nil
}
