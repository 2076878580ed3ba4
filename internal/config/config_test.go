package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-trends-service/internal/ratelimit"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "audio-trends-service", cfg.App.Name)
	assert.Equal(t, 4*time.Hour, cfg.Upstream.CacheTTL)
	assert.Equal(t, 50, cfg.Upstream.MaxItems)
	assert.Equal(t, 3, cfg.Upstream.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Upstream.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Retry.MaxDelay)
	assert.Equal(t, uint32(5), cfg.Upstream.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Upstream.Breaker.Timeout)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())

	require.Len(t, cfg.RateLimit.Presets, len(ratelimit.DefaultPresets()))
	for name, want := range ratelimit.DefaultPresets() {
		assert.Equal(t, want, cfg.RateLimit.Presets[name], name)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_UPSTREAM_CACHE_TTL", "1h")
	t.Setenv("APP_UPSTREAM_SECRET", "s3cret")
	t.Setenv("APP_RATE_LIMIT_BACKEND", "redis")
	t.Setenv("APP_RATE_LIMIT_PRESETS_TRENDS_MAX", "7")
	t.Setenv("APP_RATE_LIMIT_PRESETS_BURST_ALGORITHM", "token_bucket")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Upstream.CacheTTL)
	assert.Equal(t, "s3cret", cfg.Upstream.Secret)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, int64(7), cfg.RateLimit.Presets[ratelimit.PresetTrends].Max)
	assert.Equal(t, ratelimit.AlgorithmTokenBucket, cfg.RateLimit.Presets[ratelimit.PresetBurst].Algorithm)
	assert.Empty(t, cfg.RateLimit.Presets[ratelimit.PresetAPI].Algorithm)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  port: 9090
  admin_token: admin
upstream:
  base_url: https://grid.example.com
  max_items: 20
rate_limit:
  algorithm: token_bucket
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "admin", cfg.App.AdminToken)
	assert.Equal(t, "https://grid.example.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 20, cfg.Upstream.MaxItems)
	assert.Equal(t, "token_bucket", cfg.RateLimit.Algorithm)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"APP_RATE_LIMIT_BACKEND": "memcached"}},
		{name: "unknown algorithm", env: map[string]string{"APP_RATE_LIMIT_ALGORITHM": "leaky_bucket"}},
		{name: "max delay below base", env: map[string]string{"APP_UPSTREAM_RETRY_MAX_DELAY": "100ms"}},
		{name: "renderer without url", env: map[string]string{"APP_UPSTREAM_RENDERER_ENABLED": "true"}},
		{name: "zero preset max", env: map[string]string{"APP_RATE_LIMIT_PRESETS_API_MAX": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
