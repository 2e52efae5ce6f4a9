package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"criminal-registry/pkg/logger"
)

// LoggerMiddleware writes one api log line per request and tags the response with X-Request-ID
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("X-Request-ID", requestID)

		err := c.Next()
		if err != nil {
			// let the error handler set the status before it is logged
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		data := map[string]interface{}{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn(logger.CategoryAPI, "request", "Request failed", data)
		} else {
			logger.Debug(logger.CategoryAPI, "request", "Request handled", data)
		}
		return nil
	}
}

func CorsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Token, X-Request-ID",
	})
}
