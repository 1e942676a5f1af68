package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DashboardTokenAuth validates the shared-secret credential on dashboard
// endpoints. Expects "Authorization: Bearer <token>" or a "token" query
// parameter.
func DashboardTokenAuth(configuredToken string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if configuredToken == "" {
			logger.Warn("Dashboard token not configured, refusing dashboard access")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Dashboard token not configured",
			})
		}

		provided := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid Authorization header format. Expected: Bearer <token>",
				})
			}
			provided = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if provided == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing dashboard token",
			})
		}

		// Constant-time comparison to prevent timing attacks
		if !secureCompare(provided, configuredToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid dashboard token",
			})
		}

		return c.Next()
	}
}

// secureCompare performs constant-time string comparison
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}
