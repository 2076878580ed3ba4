// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/transport/httpserver/dto"
	"audio-trends-service/internal/validator"
)

// TrendHandler serves live and stored trend data.
type TrendHandler struct {
	service   *service.TrendService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewTrendHandler creates a new TrendHandler.
func NewTrendHandler(svc *service.TrendService, v *validator.Validator, logger *zap.Logger) *TrendHandler {
	return &TrendHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// Trends handles GET /api/v1/trends
//
// Upstream failures degrade to an empty, unavailable list instead of an error status.
func (h *TrendHandler) Trends(c *fiber.Ctx) error {
	var req dto.TrendsRequest
	if errResp := bindQuery(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	items, err := h.service.Current(c.UserContext(), false)
	if err != nil {
		if domain.IsUpstreamError(err) {
			h.logger.Warn("serving unavailable trends", zap.Error(err))
			return c.JSON(dto.UnavailableTrends())
		}

		h.logger.Error("fetching trends failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to fetch trends",
			Code:  "INTERNAL_ERROR",
		})
	}

	return c.JSON(dto.FromTrendItems(items, req.Limit))
}

// ListAudio handles GET /api/v1/audio
func (h *TrendHandler) ListAudio(c *fiber.Ctx) error {
	var req dto.ListAudioRequest
	if errResp := bindQuery(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	params := req.ToListParams()
	trends, err := h.service.Top(c.UserContext(), params)
	if err != nil {
		h.logger.Error("listing audio failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to list audio",
			Code:  "INTERNAL_ERROR",
		})
	}

	total, err := h.service.Stored(c.UserContext())
	if err != nil {
		h.logger.Error("counting audio failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to list audio",
			Code:  "INTERNAL_ERROR",
		})
	}

	return c.JSON(dto.FromDomainAudioList(trends, total, params))
}

// GetAudio handles GET /api/v1/audio/:id
func (h *TrendHandler) GetAudio(c *fiber.Ctx) error {
	var req dto.AudioRequest
	if errResp := bindParams(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	detail, err := h.service.Audio(c.UserContext(), req.ID, domain.DefaultHistoryLimit)
	if err != nil {
		return h.lookupError(c, req.ID, err)
	}

	return c.JSON(dto.FromAudioDetail(detail))
}

// History handles GET /api/v1/audio/:id/history
func (h *TrendHandler) History(c *fiber.Ctx) error {
	var req dto.AudioRequest
	if errResp := bindParams(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	var query dto.HistoryRequest
	if errResp := bindQuery(c, h.validator, &query); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	rows, err := h.service.History(c.UserContext(), req.ID, query.Limit)
	if err != nil {
		return h.lookupError(c, req.ID, err)
	}

	return c.JSON(dto.HistoryResponse{ID: req.ID, History: dto.FromHistory(rows)})
}

func (h *TrendHandler) lookupError(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "audio not found",
			Code:  "NOT_FOUND",
		})
	}

	h.logger.Error("audio lookup failed", zap.String("id", id), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: "failed to get audio",
		Code:  "INTERNAL_ERROR",
	})
}

