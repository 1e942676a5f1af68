package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"sitepulse/internal/ingest"
)

// NewIngestHandler accepts visit events from the edge middleware. The caller
// uses the endpoint for its side effect only: recording failures are logged
// and swallowed, and the response never carries an error status that would
// make the edge retry or block a page response.
func NewIngestHandler(recorder *ingest.Recorder, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var visit ingest.Visit
		if err := c.BodyParser(&visit); err != nil {
			logger.Warn("Discarding unparseable visit payload", slog.Any("error", err))
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": false})
		}

		if err := recorder.Record(c.UserContext(), visit); err != nil {
			logger.Error("Failed to record visit",
				slog.String("path", visit.Path),
				slog.Any("error", err))
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": false})
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
	}
}
