// Package internal assembles the application: configuration, logging, store
// and the HTTP surface.
package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"sitepulse/internal/analytics"
	"sitepulse/internal/config"
	"sitepulse/internal/ingest"
	"sitepulse/internal/pkg/botdetect"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/store"
	"sitepulse/internal/subscribers"
	"sitepulse/internal/visitors"
	"sitepulse/pkg/logger"
)

// Application holds wired dependencies for the running service.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Recorder  *ingest.Recorder
	Directory *visitors.Directory
	Engine    *analytics.Engine
	Server    *fiber.App

	geo *geoip.Resolver
}

// NewApp builds the application from the ambient configuration.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig builds the application from the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.Options{
		Level:      cfg.GetLogLevel(),
		Pretty:     cfg.IsDevelopment(),
		Directory:  cfg.LogsDirectory,
		AppName:    cfg.AppName,
		MaxSizeMB:  cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAgeDays: cfg.LogsMaxAgeInDays,
	})

	st, err := store.New(store.Config{
		URL:              cfg.RedisURL,
		DailyRetention:   time.Duration(cfg.DailyRetentionDays) * 24 * time.Hour,
		HourlyRetention:  time.Duration(cfg.HourlyRetentionHours) * time.Hour,
		VisitorRetention: time.Duration(cfg.VisitorRetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	bots, err := botdetect.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load bot patterns: %w", err)
	}

	geo, err := geoip.New(cfg.GeoDBPath, log)
	if err != nil {
		log.Warn("GeoIP database unavailable, geo enrichment disabled",
			slog.String("path", cfg.GeoDBPath),
			slog.Any("error", err))
	}

	recorder := ingest.NewRecorder(st, log, ingest.Options{
		Bots:       bots,
		Geo:        geo,
		SiteDomain: cfg.SiteDomain,
		RecencyCap: cfg.RecentVisitorsCap,
		Salt:       cfg.VisitorSalt,
	})

	directory := visitors.NewDirectory(st, log, cfg.VisitorSearchLimit)
	engine := analytics.NewEngine(st, directory, subscribers.NewReader(st), log)

	app := &Application{
		Config:    cfg,
		Logger:    log,
		Store:     st,
		Recorder:  recorder,
		Directory: directory,
		Engine:    engine,
		geo:       geo,
	}

	server := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Server = server
	app.MountRoutes(server)

	return app, nil
}

// Listen serves HTTP until Shutdown is called.
func (a *Application) Listen() error {
	a.Logger.Info("Starting HTTP server", slog.String("port", a.Config.GetPort()))
	return a.Server.Listen(":" + a.Config.GetPort())
}

// Shutdown stops the HTTP server and releases the store and GeoIP handles.
func (a *Application) Shutdown() error {
	if err := a.Server.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	if err := a.geo.Close(); err != nil {
		a.Logger.Warn("Failed to close GeoIP database", slog.Any("error", err))
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
