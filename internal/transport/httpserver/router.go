// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/ratelimit"
	"audio-trends-service/internal/transport/httpserver/dto"
	"audio-trends-service/internal/transport/httpserver/handler"
	"audio-trends-service/internal/transport/httpserver/middleware"
	"audio-trends-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	BodyLimit    int
	AdminToken   string
	AllowOrigins string
}

// Deps are the collaborators the routes are served from.
type Deps struct {
	Trends    *service.TrendService
	Source    domain.TrendSource
	Limiters  *ratelimit.Registry // nil disables rate limiting
	Validator *validator.Validator
	Probes    []middleware.Probe
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg ServerConfig, deps Deps, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "audio-trends-service",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(logger),
		UnescapePath: true,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// so probes answer even when the API is rate limiting
	app.Use(middleware.NewHealthCheck(logger, deps.Probes...))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS(cfg.AllowOrigins))
	app.Use(compress.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	trendHandler := handler.NewTrendHandler(deps.Trends, deps.Validator, logger)
	adminHandler := handler.NewAdminHandler(deps.Trends, deps.Source, deps.Limiters, deps.Validator, logger)

	registerRoutes(app, cfg, deps.Limiters, trendHandler, adminHandler, logger)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	cfg ServerConfig,
	limiters *ratelimit.Registry,
	trendHandler *handler.TrendHandler,
	adminHandler *handler.AdminHandler,
	logger *zap.Logger,
) {
	limit := func(preset string) fiber.Handler {
		if l, ok := limiters.Get(preset); ok {
			return middleware.RateLimit(l, logger)
		}
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/api/v1")

	v1.Get("/trends", limit(ratelimit.PresetTrends), trendHandler.Trends)

	audio := v1.Group("/audio")
	audio.Get("/", limit(ratelimit.PresetAPI), trendHandler.ListAudio)
	audio.Get("/:id", limit(ratelimit.PresetAudio), trendHandler.GetAudio)
	audio.Get("/:id/history", limit(ratelimit.PresetAudio), trendHandler.History)

	admin := v1.Group("/admin", limit(ratelimit.PresetStrict), middleware.AdminAuth(cfg.AdminToken))
	admin.Post("/refresh", adminHandler.Refresh)
	admin.Get("/breakers", adminHandler.Breakers)
	admin.Get("/cache", adminHandler.CacheStats)
	admin.Delete("/cache", adminHandler.ClearCache)
	admin.Delete("/ratelimit/:preset/:identifier", adminHandler.ResetRateLimit)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "INTERNAL_ERROR"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			errCode = "HTTP_ERROR"
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
			errCode = "NOT_FOUND"
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		message := err.Error()
		if code >= 500 {
			message = "internal server error"
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error: message,
			Code:  errCode,
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
