// Package seeder fills the store with realistic demo traffic so a fresh
// install has a dashboard worth looking at. Visits flow through the regular
// ingest path, never directly into the store.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/ingest"
	"sitepulse/internal/store"
)

// Seeder generates synthetic visitor sessions.
type Seeder struct {
	Recorder   *ingest.Recorder
	Store      *store.Store
	Logger     *slog.Logger
	VisitCount int
}

func NewSeeder(recorder *ingest.Recorder, st *store.Store, logger *slog.Logger, visitCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		Recorder:   recorder,
		Store:      st,
		Logger:     logger,
		VisitCount: visitCount,
	}
}

// journeyTemplates are realistic paths a visitor takes through a site.
var journeyTemplates = [][]string{
	{"/", "/about", "/contact"},
	{"/", "/features", "/pricing", "/signup"},
	{"/", "/blog", "/blog/article-1", "/signup"},
	{"/pricing", "/features", "/signup"},
	{"/", "/products", "/products/widget-a", "/products/gadget-b", "/pricing"},
	{"/", "/docs", "/docs/getting-started", "/docs/api-reference"},
	{"/", "/blog", "/blog/article-1", "/blog/article-2"},
	{"/", "/signup"},
	{"/", "/features", "/pricing", "/docs", "/signup"},
	{"/blog/article-1", "/about", "/pricing", "/signup"},
}

type seedLocale struct {
	country string
	cities  []string
}

var seedLocales = []seedLocale{
	{country: "US", cities: []string{"Chicago", "New York", "Austin", "Seattle"}},
	{country: "DE", cities: []string{"Berlin", "Munich", "Hamburg"}},
	{country: "GB", cities: []string{"London", "Manchester"}},
	{country: "FR", cities: []string{"Paris", "Lyon"}},
	{country: "JP", cities: []string{"Tokyo", "Osaka"}},
	{country: "BR", cities: []string{"Sao Paulo", "Rio de Janeiro"}},
	{country: "IN", cities: []string{"Mumbai", "Bangalore"}},
}

var seedUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/605.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

var seedReferrers = []string{
	"", // direct visit
	"https://www.google.com/search?q=analytics",
	"https://duckduckgo.com/",
	"https://news.ycombinator.com/item?id=39000000",
	"https://twitter.com/someone/status/1",
	"https://www.linkedin.com/feed/",
	"https://github.com/trending",
	"https://some-other-blog.dev/posts/self-hosted-analytics",
}

var seedUTMSources = []string{"google", "newsletter", "twitter", "linkedin", "producthunt"}

// Run generates sessions spread over the last 30 days and a handful of
// subscriber signups. It is idempotent only in the loose sense: running it
// twice doubles the traffic.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding demo traffic", slog.Int("visitCount", s.VisitCount))

	avgPagesPerSession := 4
	numSessions := s.VisitCount / avgPagesPerSession
	if numSessions < 10 {
		numSessions = 10
	}

	visitsCreated := 0
	for session := 0; session < numSessions; session++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		visitsCreated += s.seedSession(ctx)
	}

	if err := s.seedSubscribers(ctx, numSessions/20+3); err != nil {
		return fmt.Errorf("seeding subscribers: %w", err)
	}

	s.Logger.Info("Seeding completed",
		slog.Int("sessions", numSessions),
		slog.Int("visits", visitsCreated),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedSession records one visitor journey. The visitor keeps the same IP,
// user agent and locale across the journey; only the first page carries the
// external referrer and UTM parameters.
func (s *Seeder) seedSession(ctx context.Context) int {
	journey := journeyTemplates[rand.IntN(len(journeyTemplates))]
	locale := seedLocales[rand.IntN(len(seedLocales))]

	ip := fmt.Sprintf("%d.%d.%d.%d", rand.IntN(220)+1, rand.IntN(256), rand.IntN(256), rand.IntN(254)+1)
	userAgent := seedUserAgents[rand.IntN(len(seedUserAgents))]
	referrer := seedReferrers[rand.IntN(len(seedReferrers))]
	city := locale.cities[rand.IntN(len(locale.cities))]

	// Random entry point in the last 30 days, pages 10s-2min apart.
	baseTime := time.Now().Add(-time.Duration(rand.IntN(30*24*60*60)) * time.Second)
	elapsed := time.Duration(0)

	created := 0
	for pageIndex, path := range journey {
		if pageIndex > 0 {
			elapsed += time.Duration(rand.IntN(110)+10) * time.Second
		}

		visit := ingest.Visit{
			Path:       path,
			Country:    locale.country,
			City:       city,
			Referrer:   referrer,
			IP:         ip,
			UserAgent:  userAgent,
			OccurredAt: baseTime.Add(elapsed),
		}
		if pageIndex == 0 && rand.IntN(10) < 3 {
			visit.QueryParams = map[string]string{
				"utm_source": seedUTMSources[rand.IntN(len(seedUTMSources))],
			}
		}

		if err := s.Recorder.Record(ctx, visit); err != nil {
			s.Logger.Error("Failed to record seeded visit", slog.Any("error", err))
			continue
		}
		created++

		// Subsequent pages are internal navigation.
		referrer = ""
	}
	return created
}

// seedSubscribers writes signup events into the subscriber roster so chart
// buckets show subscription counts.
func (s *Seeder) seedSubscribers(ctx context.Context, count int) error {
	client := s.Store.Client()
	for i := 0; i < count; i++ {
		at := time.Now().Add(-time.Duration(rand.IntN(30*24*60*60)) * time.Second)
		member := &redis.Z{
			Score:  float64(at.UnixMilli()),
			Member: fmt.Sprintf("demo-%d@example.com", i),
		}
		if err := client.ZAdd(ctx, store.SubscribersKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}
