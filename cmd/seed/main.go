// main.go - demo data seeding tool
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"sitepulse/internal/config"
	"sitepulse/internal/ingest"
	"sitepulse/internal/seeder"
	"sitepulse/internal/store"
	"sitepulse/pkg/logger"
)

func main() {
	visitCount := flag.Int("visits", 2000, "approximate number of page views to generate")
	flag.Parse()

	cfg := config.GetConfig()
	seedLogger := logger.New(logger.Options{Level: cfg.GetLogLevel(), Pretty: true})

	st, err := store.New(store.Config{
		URL:              cfg.RedisURL,
		DailyRetention:   time.Duration(cfg.DailyRetentionDays) * 24 * time.Hour,
		HourlyRetention:  time.Duration(cfg.HourlyRetentionHours) * time.Hour,
		VisitorRetention: time.Duration(cfg.VisitorRetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer st.Close()

	recorder := ingest.NewRecorder(st, seedLogger, ingest.Options{
		SiteDomain: cfg.SiteDomain,
		RecencyCap: cfg.RecentVisitorsCap,
		Salt:       cfg.VisitorSalt,
	})

	s := seeder.NewSeeder(recorder, st, seedLogger, *visitCount)
	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
