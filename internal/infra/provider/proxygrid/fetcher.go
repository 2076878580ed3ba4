// Package proxygrid implements the resilient TikTok trends fetcher backed by the proxy grid service.
package proxygrid

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/infra/provider"
	"audio-trends-service/internal/metrics"
)

const (
	// Endpoint is the proxy grid search path.
	Endpoint = "/api/search"

	// SecretHeader carries the shared secret expected by the proxy grid.
	SecretHeader = "x-grid-secret"

	// DefaultCacheKey is used when a fetch does not name its own cache key.
	DefaultCacheKey = "tiktok-trends-default"
)

// Config holds fetcher settings.
type Config struct {
	BaseURL         string
	Secret          string
	Timeout         time.Duration
	CacheTTL        time.Duration
	MaxItems        int
	Retry           RetryConfig
	Breaker         provider.BreakerConfig
	SingleFlight    bool
	TrendingPageURL string // page handed to the renderer when the grid yields nothing
}

// DefaultConfig returns the default fetcher settings.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		CacheTTL: 4 * time.Hour,
		MaxItems: DefaultMaxItems,
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
		Breaker:         provider.DefaultBreakerConfig(),
		SingleFlight:    true,
		TrendingPageURL: "https://www.tiktok.com/music/trending",
	}
}

// Renderer returns the rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock overrides the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// WithSleep overrides how the fetcher waits between retries.
func WithSleep(sleep SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// WithRenderer enables the rendered-page fallback used when the grid returns no items.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

// Fetcher retrieves ranked trend items with caching, circuit breaking and retry.
// Safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *resty.Client
	logger *zap.Logger

	cache           *responseCache
	proxyGrid       *provider.Breaker
	rendererBreaker *provider.Breaker
	renderer        Renderer
	group           singleflight.Group

	now   func() time.Time
	sleep SleepFunc
}

var _ domain.TrendSource = (*Fetcher)(nil)

// New creates a new Fetcher.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Fetcher {
	defaults := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaults.MaxItems
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = defaults.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = defaults.Retry.MaxDelay
	}

	f := &Fetcher{
		cfg:             cfg,
		client:          provider.NewRestyClient(provider.ClientConfig{Timeout: cfg.Timeout}),
		logger:          logger,
		proxyGrid:       provider.NewBreaker(provider.BreakerProxyGrid, cfg.Breaker, logger),
		rendererBreaker: provider.NewBreaker(provider.BreakerRenderer, cfg.Breaker, logger),
		now:             time.Now,
		sleep:           sleepContext,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.cache = newResponseCache(f.now)

	return f
}

// FetchTrends returns cached items while fresh; otherwise it fetches through the
// proxy grid breaker and retry loop, caches the result (even when empty) and returns it.
// Errors satisfy domain.IsUpstreamError.
func (f *Fetcher) FetchTrends(ctx context.Context, opts domain.FetchOptions) ([]domain.TrendItem, error) {
	opts = f.withDefaults(opts)

	if !opts.Force {
		if items, ok := f.cache.get(opts.CacheKey); ok {
			metrics.RecordCache(true)
			f.logger.Debug("returning cached trends", zap.String("cache_key", opts.CacheKey))
			return items, nil
		}
		metrics.RecordCache(false)
	}

	if !f.cfg.SingleFlight {
		return f.fetch(ctx, opts)
	}

	key := opts.CacheKey
	if opts.Force {
		key += "|force"
	}

	v, err, shared := f.group.Do(key, func() (any, error) {
		if !opts.Force {
			if items, ok := f.cache.get(opts.CacheKey); ok {
				return items, nil
			}
		}
		return f.fetch(ctx, opts)
	})
	if err != nil {
		return nil, err
	}

	items := v.([]domain.TrendItem)
	if shared {
		items = slices.Clone(items)
	}

	return items, nil
}

func (f *Fetcher) withDefaults(opts domain.FetchOptions) domain.FetchOptions {
	if opts.BaseURL == "" {
		opts.BaseURL = f.cfg.BaseURL
	}
	if opts.Secret == "" {
		opts.Secret = f.cfg.Secret
	}
	if opts.CacheKey == "" {
		opts.CacheKey = DefaultCacheKey
	}

	return opts
}

func (f *Fetcher) fetch(ctx context.Context, opts domain.FetchOptions) ([]domain.TrendItem, error) {
	done, err := f.proxyGrid.Allow()
	if err != nil {
		return nil, fmt.Errorf("fetching tiktok trends: %w", err)
	}

	items, err := f.withRetry(ctx, func(ctx context.Context) ([]domain.TrendItem, error) {
		return f.search(ctx, opts)
	})
	if err != nil {
		done(false)
		return nil, fmt.Errorf("fetching tiktok trends: %w", err)
	}

	source := "proxy_grid"
	if len(items) == 0 {
		done(false)
		f.logger.Warn("proxy grid response yielded no trend items",
			zap.String("cache_key", opts.CacheKey),
		)

		items = f.renderFallback(ctx)
		source = provider.BreakerRenderer
	} else {
		done(true)
	}

	metrics.UpstreamItems.WithLabelValues(source).Observe(float64(len(items)))

	f.cache.set(opts.CacheKey, items, f.now().Add(f.cfg.CacheTTL))

	f.logger.Info("tiktok trends fetched",
		zap.String("cache_key", opts.CacheKey),
		zap.String("source", source),
		zap.Int("count", len(items)),
	)

	return items, nil
}

type searchRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Force bool   `json:"force,omitempty"`
}

// search performs one proxy grid request.
func (f *Fetcher) search(ctx context.Context, opts domain.FetchOptions) ([]domain.TrendItem, error) {
	url := strings.TrimRight(opts.BaseURL, "/") + Endpoint

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(SecretHeader, opts.Secret).
		SetBody(searchRequest{Type: domain.PlatformTikTok, Query: "trending", Force: opts.Force}).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("proxy grid request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("proxy grid returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	if strings.Contains(strings.ToLower(resp.Header().Get("Content-Type")), "application/json") {
		return parseTrendsJSON(resp.Body(), f.cfg.MaxItems)
	}

	return parseFallbackHTML(resp.String(), f.cfg.MaxItems), nil
}

// renderFallback asks the renderer for the public trending page. It never fails.
func (f *Fetcher) renderFallback(ctx context.Context) []domain.TrendItem {
	items := []domain.TrendItem{}
	if f.renderer == nil || f.cfg.TrendingPageURL == "" {
		return items
	}

	done, err := f.rendererBreaker.Allow()
	if err != nil {
		return items
	}

	html, err := f.renderer.Render(ctx, f.cfg.TrendingPageURL)
	metrics.RecordAttempt(provider.BreakerRenderer, err)
	if err != nil {
		done(false)
		f.logger.Warn("renderer fallback failed", zap.Error(err))
		return items
	}

	items = parseFallbackHTML(html, f.cfg.MaxItems)
	done(len(items) > 0)

	return items
}

// BreakerStates reports both dependency breakers.
func (f *Fetcher) BreakerStates() []domain.BreakerState {
	return []domain.BreakerState{
		f.ProxyGridBreakerState(),
		f.RendererBreakerState(),
	}
}

// ProxyGridBreakerState reports the proxy grid breaker.
func (f *Fetcher) ProxyGridBreakerState() domain.BreakerState {
	return f.proxyGrid.State()
}

// RendererBreakerState reports the renderer breaker.
func (f *Fetcher) RendererBreakerState() domain.BreakerState {
	return f.rendererBreaker.State()
}

// ClearCache removes cached results whose key contains pattern, or all of them when pattern is empty.
func (f *Fetcher) ClearCache(pattern string) int {
	n := f.cache.clear(pattern)
	f.logger.Info("trend cache cleared", zap.String("pattern", pattern), zap.Int("removed", n))

	return n
}

// CacheStats describes the cached results.
func (f *Fetcher) CacheStats() domain.CacheStats {
	return f.cache.stats()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
