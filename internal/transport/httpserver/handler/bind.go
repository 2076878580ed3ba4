package handler

import (
	"github.com/gofiber/fiber/v2"

	"audio-trends-service/internal/transport/httpserver/dto"
	"audio-trends-service/internal/validator"
)

// bindQuery parses and validates query parameters into req.
// A non-nil result is the 400 body to send.
func bindQuery(c *fiber.Ctx, v *validator.Validator, req any) *dto.ErrorResponse {
	if err := c.QueryParser(req); err != nil {
		return &dto.ErrorResponse{Error: "invalid query parameters", Code: "INVALID_PARAMS"}
	}

	return validate(v, req)
}

// bindParams parses and validates route parameters into req.
func bindParams(c *fiber.Ctx, v *validator.Validator, req any) *dto.ErrorResponse {
	if err := c.ParamsParser(req); err != nil {
		return &dto.ErrorResponse{Error: "invalid path parameters", Code: "INVALID_PARAMS"}
	}

	return validate(v, req)
}

func validate(v *validator.Validator, req any) *dto.ErrorResponse {
	if err := v.Validate(req); err != nil {
		return &dto.ErrorResponse{Error: "validation failed", Code: "VALIDATION_ERROR", Details: err}
	}

	return nil
}
