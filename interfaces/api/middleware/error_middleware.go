package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/utils"
)

// StatusForError maps domain errors to an HTTP status and operator message
func StatusForError(err error) (int, string) {
	var fe *fiber.Error
	var ve *services.ValidationError

	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Reason
	case errors.Is(err, repositories.ErrInvalidID):
		return fiber.StatusBadRequest, "Invalid record identifier"
	case errors.Is(err, repositories.ErrRecordNotFound):
		return fiber.StatusNotFound, "Record not found"
	case errors.Is(err, repositories.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, "Record store unavailable, please try again later"
	case errors.Is(err, services.ErrExtractorDisabled):
		return fiber.StatusServiceUnavailable, "Facial analysis is disabled"
	case errors.Is(err, services.ErrExtractorFailed):
		return fiber.StatusServiceUnavailable, "Facial analysis service unavailable, please try again later"
	default:
		return fiber.StatusInternalServerError, "An error occurred"
	}
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := StatusForError(err)

		data := map[string]interface{}{"status_code": code, "path": c.Path(), "method": c.Method()}
		if code >= fiber.StatusInternalServerError {
			logger.Error(logger.CategoryAPI, "error_handler", "Request error occurred", err, data)
		} else {
			logger.Warn(logger.CategoryAPI, "request_rejected", err.Error(), data)
		}

		// internal details stay in the logs
		if code == fiber.StatusInternalServerError {
			return utils.ErrorResponse(c, code, message, nil)
		}
		return utils.ErrorResponse(c, code, message, err)
	}
}
