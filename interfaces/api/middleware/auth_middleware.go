package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/utils"
)

// AdminOnly guards operator-only endpoints with the X-Admin-Token header.
// An empty configured token disables the endpoints entirely.
func AdminOnly(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminToken == "" {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin endpoints are disabled", nil)
		}

		token := c.Get("X-Admin-Token")
		if token == "" {
			token = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			logger.Warn(logger.CategoryAPI, "admin_rejected", "Invalid admin token", map[string]interface{}{"ip": c.IP(), "path": c.Path()})
			return utils.UnauthorizedResponse(c, "Invalid admin token")
		}

		return c.Next()
	}
}
