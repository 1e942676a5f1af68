package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"sitepulse/internal/store"
)

// NewHealthHandler reports process liveness and store reachability. A dead
// store degrades the status to 503 so orchestrators can restart or reroute.
func NewHealthHandler(st *store.Store, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := st.Client().Ping(c.UserContext()).Err(); err != nil {
			logger.Error("Health check failed to reach store", slog.Any("error", err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"store":  "unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
