// Package ingest owns the write side of the analytics engine: one tracked
// visit becomes a pipelined group of counter, cardinality, tally, record and
// recency-list updates for the current UTC day and hour.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/pkg/botdetect"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/pkg/referrers"
	"sitepulse/internal/store"
	"sitepulse/internal/visitors"
)

// UnknownLabel fills tally slots for missing countries, cities and
// referrers. It is filtered from every ranked read model.
const UnknownLabel = "unknown"

// Visit is one tracked page view, fields pre-extracted by the edge caller.
type Visit struct {
	Path        string            `json:"path"`
	Country     string            `json:"country"`
	City        string            `json:"city"`
	Referrer    string            `json:"referrer"`
	Fingerprint string            `json:"fingerprint"`
	IP          string            `json:"ip"`
	UserAgent   string            `json:"userAgent"`
	Org         string            `json:"org"`
	QueryParams map[string]string `json:"queryParams"`

	// OccurredAt is injectable for tests; zero means now.
	OccurredAt time.Time `json:"-"`
}

// Recorder applies visits to the store.
type Recorder struct {
	store      *store.Store
	logger     *slog.Logger
	bots       *botdetect.Detector
	geo        *geoip.Resolver
	siteDomain string
	recencyCap int
	salt       string
}

// Options configures a Recorder. Bots and Geo may be nil.
type Options struct {
	Bots       *botdetect.Detector
	Geo        *geoip.Resolver
	SiteDomain string
	RecencyCap int
	Salt       string
}

func NewRecorder(st *store.Store, logger *slog.Logger, opts Options) *Recorder {
	cap := opts.RecencyCap
	if cap <= 0 {
		cap = 300
	}
	return &Recorder{
		store:      st,
		logger:     logger,
		bots:       opts.Bots,
		geo:        opts.Geo,
		siteDomain: strings.ToLower(opts.SiteDomain),
		recencyCap: cap,
		salt:       opts.Salt,
	}
}

// Record applies one visit. The multi-key update is dispatched as a single
// pipelined command group; it is not atomic across keys, and partial
// application is an accepted failure mode for an observability store.
func (r *Recorder) Record(ctx context.Context, visit Visit) error {
	if visit.Path == "" {
		return fmt.Errorf("visit has no path")
	}

	if name, isBot := r.detectBot(visit.UserAgent); isBot {
		r.logger.Debug("Skipping bot visit",
			slog.String("bot", name),
			slog.String("path", visit.Path))
		return nil
	}

	now := visit.OccurredAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if visit.Fingerprint == "" {
		visit.Fingerprint = visitors.Fingerprint(visit.IP, visit.UserAgent, r.salt)
	}

	if visit.Country == "" || visit.City == "" {
		location := r.geo.Lookup(visit.IP)
		if visit.Country == "" {
			visit.Country = location.CountryCode
		}
		if visit.City == "" {
			visit.City = location.City
		}
	}

	day := store.DayKey(now)
	hour := store.HourKey(now)

	referrerHost, hasReferrer := referrers.Hostname(visit.Referrer)
	if hasReferrer && r.siteDomain != "" && strings.HasSuffix(referrerHost, r.siteDomain) {
		// Internal navigation is not an acquisition source.
		hasReferrer = false
	}

	country := visit.Country
	countryLabel := labelOr(country, UnknownLabel)
	cityLabel := labelOr(visit.City, UnknownLabel)
	referrerLabel := UnknownLabel
	if hasReferrer {
		referrerLabel = referrerHost
	}

	dailyTTL := r.store.DailyRetention()
	hourlyTTL := r.store.HourlyRetention()
	visitorTTL := r.store.VisitorRetention()

	pipe := r.store.Client().TxPipeline()

	// Bucket counters and cardinality sets, day and hour.
	pipe.Incr(ctx, store.DailyViewKey(day))
	pipe.Expire(ctx, store.DailyViewKey(day), dailyTTL)
	pipe.Incr(ctx, store.HourlyViewKey(hour))
	pipe.Expire(ctx, store.HourlyViewKey(hour), hourlyTTL)
	pipe.PFAdd(ctx, store.DailyVisitorKey(day), visit.Fingerprint)
	pipe.Expire(ctx, store.DailyVisitorKey(day), dailyTTL)
	pipe.PFAdd(ctx, store.HourlyVisitorKey(hour), visit.Fingerprint)
	pipe.Expire(ctx, store.HourlyVisitorKey(hour), hourlyTTL)

	// Per-day ranked tallies.
	incrTally(ctx, pipe, store.PageTallyKey(day), visit.Path, dailyTTL)
	incrTally(ctx, pipe, store.CountryTallyKey(day), countryLabel, dailyTTL)
	incrTally(ctx, pipe, store.CityTallyKey(day), cityLabel, dailyTTL)
	incrTally(ctx, pipe, store.ReferrerTallyKey(day), referrerLabel, dailyTTL)
	incrTally(ctx, pipe, store.VisitorTallyKey(day), visit.Fingerprint, dailyTTL)
	incrTally(ctx, pipe, store.VisitorPagesKey(visit.Fingerprint), visit.Path, visitorTTL)

	// Country-scoped tallies back the dashboard's country drill-down.
	if country != "" {
		incrTally(ctx, pipe, store.CountryPageTallyKey(country, day), visit.Path, dailyTTL)
		incrTally(ctx, pipe, store.CountryCityTallyKey(country, day), cityLabel, dailyTTL)
		incrTally(ctx, pipe, store.CountryReferrerTallyKey(country, day), referrerLabel, dailyTTL)
	}

	// Visitor record: metadata overwritten, first-touch written once.
	recordKey := store.VisitorRecordKey(visit.Fingerprint)
	pipe.HSet(ctx, recordKey, visitors.RecordFields(
		visit.IP, country, visit.City, referrerLabel, visit.UserAgent, visit.Org, now))
	for key, value := range visit.QueryParams {
		pipe.HSet(ctx, recordKey, visitors.QueryParamField(key), value)
		pipe.HSetNX(ctx, recordKey, visitors.FirstTouchField(key), value)
	}
	if hasReferrer {
		pipe.HSetNX(ctx, recordKey, visitors.FirstTouchField("referrer"), referrerHost)
	}
	pipe.Expire(ctx, recordKey, visitorTTL)

	// Recency lists: newest first, trimmed to the cap. A lossy sample,
	// not a complete log.
	entry := visitors.RecencyEntry(visit.Fingerprint, now)
	pipe.LPush(ctx, store.RecentVisitorsKey, entry)
	pipe.LTrim(ctx, store.RecentVisitorsKey, 0, int64(r.recencyCap)-1)
	if country != "" {
		countryList := store.RecentVisitorsCountryKey(country)
		pipe.LPush(ctx, countryList, entry)
		pipe.LTrim(ctx, countryList, 0, int64(r.recencyCap)-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording visit for %s: %w", visit.Path, err)
	}
	return nil
}

func (r *Recorder) detectBot(userAgent string) (string, bool) {
	if r.bots == nil {
		return "", false
	}
	return r.bots.Detect(userAgent)
}

func incrTally(ctx context.Context, pipe redis.Pipeliner, key, label string, ttl time.Duration) {
	pipe.ZIncrBy(ctx, key, 1, label)
	pipe.Expire(ctx, key, ttl)
}

func labelOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
