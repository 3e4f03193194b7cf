package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	headerRequestID = "X-Request-ID"
	headerPlayerID  = "X-Player-ID"

	localRequestID = "request_id"
	localPlayerID  = "player_id"
)

// requestID tags every request with an id, reusing the caller's when present
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Locals(localRequestID, id)
		return c.Next()
	}
}

// requestLogger logs each request once its response status is known
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := errorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := log.Fields{
			"requestID": c.Locals(localRequestID),
			"method":    c.Method(),
			"path":      c.Path(),
			"status":    c.Response().StatusCode(),
			"duration":  time.Since(start).String(),
		}
		if playerID, ok := c.Locals(localPlayerID).(int64); ok {
			fields["playerID"] = playerID
		}
		log.WithFields(fields).Debug("Handled request")
		return nil
	}
}

// playerIdentity reads the acting player's id set by the upstream gateway
func playerIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(headerPlayerID)
		playerID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || playerID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid X-Player-ID",
			})
		}
		c.Locals(localPlayerID, playerID)
		return c.Next()
	}
}

// internalAuth checks the bearer token on producer-facing routes
func internalAuth(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token != expectedToken {
			log.WithField("path", c.Path()).Warn("Rejected internal request with bad token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid internal token",
			})
		}
		return c.Next()
	}
}

// currentPlayer returns the id stored by playerIdentity
func currentPlayer(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localPlayerID).(int64)
	return id
}
