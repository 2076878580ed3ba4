// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"audio-trends-service/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name         string `mapstructure:"name" validate:"required"`
	Env          string `mapstructure:"env" validate:"oneof=development staging production"`
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	Debug        bool   `mapstructure:"debug"`
	AdminToken   string `mapstructure:"admin_token"` // empty disables admin routes
	AllowOrigins string `mapstructure:"allow_origins"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host          string        `mapstructure:"host" validate:"required"`
	Port          int           `mapstructure:"port" validate:"min=1,max=65535"`
	Name          string        `mapstructure:"name" validate:"required"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	SSLMode       string        `mapstructure:"ssl_mode"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxLifetime   time.Duration `mapstructure:"max_lifetime"`
	LogLevel      string        `mapstructure:"log_level" validate:"oneof=silent error warn info"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig holds Redis connection settings for locking and rate-limit counters.
type RedisConfig struct {
	Host      string `mapstructure:"host" validate:"required"`
	Port      int    `mapstructure:"port" validate:"min=1,max=65535"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// Addr returns the host:port pair go-redis expects.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UpstreamConfig holds the proxy-grid fetcher settings.
type UpstreamConfig struct {
	BaseURL         string         `mapstructure:"base_url" validate:"required,url"`
	Secret          string         `mapstructure:"secret"`
	Timeout         time.Duration  `mapstructure:"timeout" validate:"gt=0"`
	CacheTTL        time.Duration  `mapstructure:"cache_ttl" validate:"gt=0"`
	MaxItems        int            `mapstructure:"max_items" validate:"min=1"`
	SingleFlight    bool           `mapstructure:"single_flight"`
	TrendingPageURL string         `mapstructure:"trending_page_url"`
	Retry           RetryConfig    `mapstructure:"retry"`
	Breaker         BreakerConfig  `mapstructure:"circuit_breaker"`
	Renderer        RendererConfig `mapstructure:"renderer"`
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0"`
	BaseDelay  time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay   time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"min=1"`
}

// RendererConfig holds the headless-render fallback settings.
type RendererConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url" validate:"required_if=Enabled true"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig holds admission-control settings.
type RateLimitConfig struct {
	Enabled       bool                        `mapstructure:"enabled"`
	Backend       string                      `mapstructure:"backend" validate:"oneof=memory redis"`
	Algorithm     string                      `mapstructure:"algorithm" validate:"oneof=fixed_window sliding_window token_bucket"`
	SweepInterval time.Duration               `mapstructure:"sweep_interval" validate:"gt=0"`
	Presets       map[string]ratelimit.Config `mapstructure:"presets"`
}

// RefreshConfig holds background refresh job settings.
type RefreshConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	OnStartup bool          `mapstructure:"on_startup"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and every rate-limit preset.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for name, preset := range c.RateLimit.Presets {
		if err := preset.Validate(); err != nil {
			return fmt.Errorf("invalid rate limit preset %q: %w", name, err)
		}
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "audio-trends-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)
	v.SetDefault("app.admin_token", "")
	v.SetDefault("app.allow_origins", "*")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "audio_trends")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", "200ms")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "audiotrends")

	// Upstream defaults
	v.SetDefault("upstream.base_url", "http://localhost:8081")
	v.SetDefault("upstream.secret", "")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.cache_ttl", "4h")
	v.SetDefault("upstream.max_items", 50)
	v.SetDefault("upstream.single_flight", true)
	v.SetDefault("upstream.trending_page_url", "https://www.tiktok.com/music/trending")
	v.SetDefault("upstream.retry.max_retries", 3)
	v.SetDefault("upstream.retry.base_delay", "1s")
	v.SetDefault("upstream.retry.max_delay", "10s")
	v.SetDefault("upstream.circuit_breaker.failure_threshold", 5)
	v.SetDefault("upstream.circuit_breaker.timeout", "60s")
	v.SetDefault("upstream.circuit_breaker.max_requests", 1)
	v.SetDefault("upstream.renderer.enabled", false)
	v.SetDefault("upstream.renderer.base_url", "")
	v.SetDefault("upstream.renderer.token", "")
	v.SetDefault("upstream.renderer.timeout", "30s")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.algorithm", string(ratelimit.AlgorithmFixedWindow))
	v.SetDefault("rate_limit.sweep_interval", "1m")
	for name, preset := range ratelimit.DefaultPresets() {
		key := "rate_limit.presets." + name
		v.SetDefault(key+".window", preset.Window.String())
		v.SetDefault(key+".max", preset.Max)
		v.SetDefault(key+".key_prefix", preset.KeyPrefix)
		v.SetDefault(key+".refill_rate", preset.RefillRate)
		v.SetDefault(key+".algorithm", string(preset.Algorithm))
	}

	// Refresh defaults
	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", "30m")
	v.SetDefault("refresh.timeout", "2m")
	v.SetDefault("refresh.on_startup", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}
