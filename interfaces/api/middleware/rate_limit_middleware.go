package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"criminal-registry/pkg/config"
)

// SearchRateLimiter throttles image searches per client IP. Each request fans out to
// one facial-analysis call per stored record, so it gets its own budget.
func SearchRateLimiter(cfg *config.RateLimitConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return limiter.New(limiter.Config{
		Max:        cfg.MaxRequests,
		Expiration: time.Duration(cfg.WindowSeconds) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    "SEARCH_RATE_LIMIT_EXCEEDED",
					"message": "Too many image searches. Please try again later.",
				},
			})
		},
	})
}
