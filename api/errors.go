package api

import (
	"errors"

	"pulp/domain"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// errorHandler maps domain errors to HTTP responses. Storage and unexpected
// failures are logged and reported generically.
func errorHandler(c *fiber.Ctx, err error) error {
	var windowOpen *domain.WindowAlreadyOpenError
	if errors.As(err, &windowOpen) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":             windowOpen.Error(),
			"code":              domain.ErrWindowAlreadyOpen.Code,
			"window_id":         windowOpen.WindowID,
			"seconds_remaining": windowOpen.SecondsRemaining,
		})
	}

	var businessErr *domain.BusinessLogicError
	if errors.As(err, &businessErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": businessErr.Message,
			"code":  businessErr.Code,
		})
	}

	if domain.IsValidation(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if domain.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	log.WithFields(log.Fields{
		"requestID": c.Locals(localRequestID),
		"method":    c.Method(),
		"path":      c.Path(),
		"error":     err,
	}).Error("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
