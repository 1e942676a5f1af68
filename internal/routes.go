package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"sitepulse/internal/http"
	"sitepulse/internal/http/middleware"
)

// publicCORSConfig is shared by every public endpoint. Ingestion is called
// cross-origin from tracked sites, so CORS must be permissive.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountRoutes wires every route onto the fiber app.
func (a *Application) MountRoutes(app *fiber.App) {
	// Rate limiting only in production: in development and test it would
	// interfere with local tooling and test suites.
	conditionalRateLimiter := func(l fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if a.Config.IsProduction() {
				return l(c)
			}
			return c.Next()
		}
	}

	// 70/min per IP handles legitimate analytics traffic while blunting abuse.
	ingestRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        70,
		Expiration: time.Minute,
	}))

	app.Get("/health", http.NewHealthHandler(a.Store, a.Logger))
	app.Head("/health", http.NewHealthHandler(a.Store, a.Logger))

	ingestCORS := cors.New(publicCORSConfig)
	app.Post("/api/v1/ingest", ingestCORS, ingestRateLimiter,
		http.NewIngestHandler(a.Recorder, a.Logger))
	app.Options("/api/v1/ingest", ingestCORS, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/api/v1/dashboard",
		middleware.DashboardTokenAuth(a.Config.DashboardToken, a.Logger),
		http.NewDashboardHandler(http.DashboardDeps{
			Store:           a.Store,
			Engine:          a.Engine,
			Directory:       a.Directory,
			Logger:          a.Logger,
			HourlyRetention: a.Store.HourlyRetention(),
		}))
}
