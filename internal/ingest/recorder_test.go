package ingest_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/ingest"
	"sitepulse/internal/pkg/botdetect"
	"sitepulse/internal/store"
)

var testInstant = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func newTestRecorder(t *testing.T, opts ingest.Options) (*ingest.Recorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewWithClient(client, store.Config{
		DailyRetention:   90 * 24 * time.Hour,
		HourlyRetention:  48 * time.Hour,
		VisitorRetention: 90 * 24 * time.Hour,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ingest.NewRecorder(st, logger, opts), mr
}

func testVisit() ingest.Visit {
	return ingest.Visit{
		Path:        "/pricing",
		Country:     "US",
		City:        "Chicago",
		Referrer:    "https://www.google.com/search?q=pricing",
		Fingerprint: "fp-alpha",
		IP:          "203.0.113.9",
		UserAgent:   "Mozilla/5.0",
		OccurredAt:  testInstant,
	}
}

func TestRecordWritesBucketCounters(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{})

	require.NoError(t, recorder.Record(context.Background(), testVisit()))
	require.NoError(t, recorder.Record(context.Background(), testVisit()))

	dayViews, err := mr.Get("views:day:2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2", dayViews)

	hourViews, err := mr.Get("views:hour:2024-06-15T14")
	require.NoError(t, err)
	assert.Equal(t, "2", hourViews)
	assert.True(t, mr.Exists("uv:day:2024-06-15"))
	assert.True(t, mr.Exists("uv:hour:2024-06-15T14"))
}

func TestRecordWritesRankedTallies(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{})

	visit := testVisit()
	require.NoError(t, recorder.Record(context.Background(), visit))
	visit.Path = "/about"
	require.NoError(t, recorder.Record(context.Background(), visit))
	visit.Path = "/pricing"
	require.NoError(t, recorder.Record(context.Background(), visit))

	score, err := mr.ZScore("pages:2024-06-15", "/pricing")
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)

	score, err = mr.ZScore("countries:2024-06-15", "US")
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	score, err = mr.ZScore("cities:2024-06-15", "Chicago")
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	score, err = mr.ZScore("referrers:2024-06-15", "google.com")
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	score, err = mr.ZScore("visitors:2024-06-15", "fp-alpha")
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	// Country-scoped drill-down tallies.
	score, err = mr.ZScore("pages:US:2024-06-15", "/pricing")
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)

	// Per-visitor page tally.
	score, err = mr.ZScore("visitor:pages:fp-alpha", "/about")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestRecordFillsUnknownLabels(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{})

	visit := testVisit()
	visit.Country = ""
	visit.City = ""
	visit.Referrer = ""
	require.NoError(t, recorder.Record(context.Background(), visit))

	for _, key := range []string{
		"countries:2024-06-15",
		"cities:2024-06-15",
		"referrers:2024-06-15",
	} {
		score, err := mr.ZScore(key, "unknown")
		require.NoError(t, err, key)
		assert.Equal(t, float64(1), score, key)
	}

	// No country means no country-scoped tallies and no country recency list.
	assert.False(t, mr.Exists("pages::2024-06-15"))
}

func TestRecordSelfReferralTreatedAsDirect(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{SiteDomain: "example.com"})

	visit := testVisit()
	visit.Referrer = "https://www.example.com/blog"
	require.NoError(t, recorder.Record(context.Background(), visit))

	score, err := mr.ZScore("referrers:2024-06-15", "unknown")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestRecordVisitorHashAndFirstTouch(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{})

	visit := testVisit()
	visit.QueryParams = map[string]string{"utm_source": "newsletter"}
	require.NoError(t, recorder.Record(context.Background(), visit))

	assert.Equal(t, "203.0.113.9", mr.HGet("visitor:fp-alpha", "ip"))
	assert.Equal(t, "US", mr.HGet("visitor:fp-alpha", "country"))
	assert.Equal(t, "newsletter", mr.HGet("visitor:fp-alpha", "qp:utm_source"))
	assert.Equal(t, "newsletter", mr.HGet("visitor:fp-alpha", "ft:utm_source"))
	assert.Equal(t, "google.com", mr.HGet("visitor:fp-alpha", "ft:referrer"))

	// A later visit updates current attributes but never first-touch.
	later := visit
	later.QueryParams = map[string]string{"utm_source": "twitter"}
	later.Referrer = "https://t.co/xyz"
	require.NoError(t, recorder.Record(context.Background(), later))

	assert.Equal(t, "twitter", mr.HGet("visitor:fp-alpha", "qp:utm_source"))
	assert.Equal(t, "newsletter", mr.HGet("visitor:fp-alpha", "ft:utm_source"))
	assert.Equal(t, "google.com", mr.HGet("visitor:fp-alpha", "ft:referrer"))
}

func TestRecordRecencyListTrimmedToCap(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{RecencyCap: 5})

	for i := 0; i < 8; i++ {
		visit := testVisit()
		visit.Fingerprint = string(rune('a' + i))
		require.NoError(t, recorder.Record(context.Background(), visit))
	}

	entries, err := mr.List("recent:visitors")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	// Newest first.
	assert.Contains(t, entries[0], "h|")

	countryEntries, err := mr.List("recent:visitors:US")
	require.NoError(t, err)
	assert.Len(t, countryEntries, 5)
}

func TestRecordDerivesFingerprintWhenMissing(t *testing.T) {
	recorder, mr := newTestRecorder(t, ingest.Options{Salt: "pepper"})

	visit := testVisit()
	visit.Fingerprint = ""
	require.NoError(t, recorder.Record(context.Background(), visit))

	members, err := mr.ZMembers("visitors:2024-06-15")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Len(t, members[0], 32)
	assert.NotEqual(t, "fp-alpha", members[0])
}

func TestRecordSkipsBots(t *testing.T) {
	bots, err := botdetect.New()
	require.NoError(t, err)
	recorder, mr := newTestRecorder(t, ingest.Options{Bots: bots})

	visit := testVisit()
	visit.UserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	require.NoError(t, recorder.Record(context.Background(), visit))

	assert.False(t, mr.Exists("views:day:2024-06-15"))
}

func TestRecordRejectsEmptyPath(t *testing.T) {
	recorder, _ := newTestRecorder(t, ingest.Options{})

	visit := testVisit()
	visit.Path = ""
	assert.Error(t, recorder.Record(context.Background(), visit))
}
