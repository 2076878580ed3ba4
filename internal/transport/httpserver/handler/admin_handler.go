package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/ratelimit"
	"audio-trends-service/internal/transport/httpserver/dto"
	"audio-trends-service/internal/validator"
)

// AdminHandler handles operator requests: manual refresh and fetcher/limiter diagnostics.
type AdminHandler struct {
	service   *service.TrendService
	source    domain.TrendSource
	limiters  *ratelimit.Registry
	validator *validator.Validator
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	svc *service.TrendService,
	source domain.TrendSource,
	limiters *ratelimit.Registry,
	v *validator.Validator,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		service:   svc,
		source:    source,
		limiters:  limiters,
		validator: v,
		logger:    logger,
	}
}

// Refresh handles POST /api/v1/admin/refresh
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	h.logger.Info("manual refresh triggered")

	result, err := h.service.Refresh(c.UserContext())
	if err != nil {
		if domain.IsUpstreamError(err) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: err.Error(),
				Code:  "UPSTREAM_UNAVAILABLE",
			})
		}

		h.logger.Error("manual refresh failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "refresh failed",
			Code:  "REFRESH_FAILED",
		})
	}

	return c.JSON(dto.FromRefreshResult(result))
}

// Breakers handles GET /api/v1/admin/breakers
func (h *AdminHandler) Breakers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"breakers": dto.FromBreakerStates(h.source.BreakerStates()),
	})
}

// CacheStats handles GET /api/v1/admin/cache
func (h *AdminHandler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.source.CacheStats())
}

// ClearCache handles DELETE /api/v1/admin/cache?pattern=
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	var req dto.ClearCacheRequest
	if errResp := bindQuery(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	removed := h.source.ClearCache(req.Pattern)

	return c.JSON(dto.ClearCacheResponse{Pattern: req.Pattern, Removed: removed})
}

// ResetRateLimit handles DELETE /api/v1/admin/ratelimit/:preset/:identifier
func (h *AdminHandler) ResetRateLimit(c *fiber.Ctx) error {
	var req dto.ResetRateLimitRequest
	if errResp := bindParams(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	limiter, ok := h.limiters.Get(req.Preset)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "rate limit preset not enabled",
			Code:  "PRESET_NOT_FOUND",
		})
	}

	if err := limiter.Reset(c.UserContext(), req.Identifier); err != nil {
		h.logger.Error("rate limit reset failed",
			zap.String("preset", req.Preset),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to reset rate limit",
			Code:  "INTERNAL_ERROR",
		})
	}

	h.logger.Info("rate limit reset",
		zap.String("preset", req.Preset),
		zap.String("identifier", req.Identifier),
	)

	return c.SendStatus(fiber.StatusNoContent)
}
