// Package main is the entry point for the audio-trends-service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/config"
	"audio-trends-service/internal/infra/postgres"
	"audio-trends-service/internal/infra/postgres/migrations"
	"audio-trends-service/internal/infra/provider"
	"audio-trends-service/internal/infra/provider/proxygrid"
	"audio-trends-service/internal/infra/provider/renderer"
	redisstore "audio-trends-service/internal/infra/redis"
	"audio-trends-service/internal/job"
	"audio-trends-service/internal/logger"
	"audio-trends-service/internal/ratelimit"
	"audio-trends-service/internal/transport/httpserver"
	"audio-trends-service/internal/transport/httpserver/middleware"
	"audio-trends-service/internal/validator"
	"audio-trends-service/pkg/locker"
)

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG_FILE"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(
		logger.Config{
			Level:   cfg.Logger.Level,
			Format:  cfg.Logger.Format,
			Output:  cfg.Logger.Output,
			Service: cfg.App.Name,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting audio-trends-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	db, err := postgres.NewConnection(
		postgres.Config{
			Host:          cfg.Database.Host,
			Port:          cfg.Database.Port,
			Name:          cfg.Database.Name,
			User:          cfg.Database.User,
			Password:      cfg.Database.Password,
			SSLMode:       cfg.Database.SSLMode,
			MaxOpenConns:  cfg.Database.MaxOpenConns,
			MaxIdleConns:  cfg.Database.MaxIdleConns,
			MaxLifetime:   cfg.Database.MaxLifetime,
			LogLevel:      cfg.Database.LogLevel,
			SlowThreshold: cfg.Database.SlowThreshold,
		},
		log.Named("postgres").Logger,
	)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = postgres.Close(db) }()

	if err := migrations.Run(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	repo := postgres.NewRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))

	// Upstream fetcher with optional rendered-page fallback
	fetcherOpts := []proxygrid.Option{}
	if cfg.Upstream.Renderer.Enabled {
		fetcherOpts = append(fetcherOpts, proxygrid.WithRenderer(renderer.New(
			renderer.Config{
				BaseURL: cfg.Upstream.Renderer.BaseURL,
				Token:   cfg.Upstream.Renderer.Token,
				Timeout: cfg.Upstream.Renderer.Timeout,
			},
			log.Named("renderer").Logger,
		)))
	}

	fetcher := proxygrid.New(
		proxygrid.Config{
			BaseURL:  cfg.Upstream.BaseURL,
			Secret:   cfg.Upstream.Secret,
			Timeout:  cfg.Upstream.Timeout,
			CacheTTL: cfg.Upstream.CacheTTL,
			MaxItems: cfg.Upstream.MaxItems,
			Retry: proxygrid.RetryConfig{
				MaxRetries: cfg.Upstream.Retry.MaxRetries,
				BaseDelay:  cfg.Upstream.Retry.BaseDelay,
				MaxDelay:   cfg.Upstream.Retry.MaxDelay,
			},
			Breaker: provider.BreakerConfig{
				FailureThreshold: cfg.Upstream.Breaker.FailureThreshold,
				Timeout:          cfg.Upstream.Breaker.Timeout,
				MaxRequests:      cfg.Upstream.Breaker.MaxRequests,
			},
			SingleFlight:    cfg.Upstream.SingleFlight,
			TrendingPageURL: cfg.Upstream.TrendingPageURL,
		},
		log.Named("proxygrid").Logger,
		fetcherOpts...,
	)

	trendSvc := service.NewTrendService(fetcher, repo, log.Named("trends").Logger)

	// Rate limiting
	var limiters *ratelimit.Registry
	stopSweep := func() {}
	if cfg.RateLimit.Enabled {
		algorithm, err := ratelimit.ParseAlgorithm(cfg.RateLimit.Algorithm)
		if err != nil {
			log.Fatal("invalid rate limit algorithm", zap.Error(err))
		}

		memory := ratelimit.NewMemoryStore()
		var store ratelimit.Store = memory
		if cfg.RateLimit.Backend == "redis" {
			store = ratelimit.NewFallbackStore(
				redisstore.NewCounterStore(redisClient, log.Logger, cfg.Redis.KeyPrefix),
				memory,
				log.Named("ratelimit").Logger,
			)
		}

		limiters, err = ratelimit.NewRegistry(cfg.RateLimit.Presets, store, ratelimit.WithAlgorithm(algorithm))
		if err != nil {
			log.Fatal("invalid rate limit presets", zap.Error(err))
		}
		stopSweep = sweepPeriodically(memory, cfg.RateLimit.SweepInterval, log.Logger)

		log.Info("rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.String("algorithm", string(algorithm)),
			zap.Strings("presets", limiters.Names()),
		)
	}

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:         cfg.App.Port,
			BodyLimit:    1024 * 1024, // 1MB
			AdminToken:   cfg.App.AdminToken,
			AllowOrigins: cfg.App.AllowOrigins,
		},
		httpserver.Deps{
			Trends:    trendSvc,
			Source:    fetcher,
			Limiters:  limiters,
			Validator: validator.New(limiters.Names()...),
			Probes: []middleware.Probe{
				{Name: "postgres", Check: func(ctx context.Context) error { return postgres.Ping(ctx, db) }},
				{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			},
		},
		log.Logger,
	)

	var scheduler *job.RefreshScheduler
	if cfg.Refresh.Enabled {
		scheduler = job.NewRefreshScheduler(
			trendSvc,
			job.RefreshConfig{
				Interval:  cfg.Refresh.Interval,
				Timeout:   cfg.Refresh.Timeout,
				OnStartup: cfg.Refresh.OnStartup,
			},
			log.Named("scheduler").Logger,
			locker.NewRedisLocker(redisClient, log.Logger, cfg.Redis.KeyPrefix),
		)
		scheduler.Start(cfg.Refresh.OnStartup)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}
		stopSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// sweepPeriodically drops expired in-memory counters until the returned func is called.
func sweepPeriodically(store *ratelimit.MemoryStore, interval time.Duration, log *zap.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := store.Sweep(); n > 0 {
					log.Debug("swept expired rate limit counters", zap.Int("removed", n))
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
