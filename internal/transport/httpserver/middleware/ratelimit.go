package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"audio-trends-service/internal/ratelimit"
	"audio-trends-service/internal/transport/httpserver/dto"
)

// Rate-limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// RateLimit admits requests through limiter, keyed by the caller identity.
//
// Denied requests get 429 before the handler runs. Admitted requests are
// annotated with the quota read by a second check after the handler, so each
// admitted request counts twice. A failing counter store lets the request through.
func RateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := ratelimit.ExtractIdentifier(func(key string) string {
			return c.Get(key)
		}, c.IP())

		res, err := limiter.Check(c.UserContext(), identifier)
		if err != nil {
			logger.Warn("rate limit check failed, admitting request",
				zap.String("prefix", limiter.Config().KeyPrefix),
				zap.Error(err),
			)
			return c.Next()
		}

		if !res.Allowed {
			setRateLimitHeaders(c, res)
			c.Set(HeaderRemaining, "0")

			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: "Rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
		}

		handlerErr := c.Next()

		post, err := limiter.Check(c.UserContext(), identifier)
		if err != nil {
			logger.Warn("rate limit post-check failed", zap.Error(err))
			return handlerErr
		}
		setRateLimitHeaders(c, post)

		return handlerErr
	}
}

func setRateLimitHeaders(c *fiber.Ctx, res ratelimit.Result) {
	c.Set(HeaderLimit, strconv.FormatInt(res.Limit, 10))
	c.Set(HeaderRemaining, strconv.FormatInt(res.Remaining, 10))
	c.Set(HeaderReset, strconv.FormatInt(res.Reset.Unix(), 10))

	if res.RetryAfter > 0 {
		c.Set(HeaderRetryAfter, strconv.FormatInt(int64(math.Ceil(res.RetryAfter.Seconds())), 10))
	}
}
