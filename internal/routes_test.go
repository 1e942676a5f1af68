package internal_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal"
	"sitepulse/internal/analytics"
	"sitepulse/internal/config"
	"sitepulse/internal/ingest"
	"sitepulse/internal/store"
	"sitepulse/internal/subscribers"
	"sitepulse/internal/visitors"
)

func newTestServer(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
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
	directory := visitors.NewDirectory(st, logger, 3000)

	app := &internal.Application{
		Config: &config.Config{
			AppName:        "sitepulse-test",
			Environment:    config.Test,
			DashboardToken: "secret-token",
		},
		Logger:    logger,
		Store:     st,
		Recorder:  ingest.NewRecorder(st, logger, ingest.Options{}),
		Directory: directory,
		Engine:    analytics.NewEngine(st, directory, subscribers.NewReader(st), logger),
	}

	server := fiber.New()
	app.Server = server
	app.MountRoutes(server)
	return server, mr
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestIngestEndpointAccepts(t *testing.T) {
	server, mr := newTestServer(t)

	body := `{"path":"/pricing","country":"US","fingerprint":"fp-alpha","ip":"203.0.113.9","userAgent":"Mozilla/5.0"}`
	req := httptest.NewRequest("POST", "/api/v1/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var payload map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.True(t, payload["ok"])

	today := time.Now().UTC().Format(store.DayFormat)
	views, err := mr.Get("views:day:" + today)
	require.NoError(t, err)
	assert.Equal(t, "1", views)
}

func TestIngestEndpointSwallowsBadPayload(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/ingest", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var payload map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.False(t, payload["ok"])
}

func TestDashboardRequiresToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.Test(httptest.NewRequest("GET", "/api/v1/dashboard", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = server.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDashboardWithBearerToken(t *testing.T) {
	server, mr := newTestServer(t)

	mr.Set("views:day:2024-06-15", "42")
	mr.ZAdd("subscribers", 1718409600000, "ada@example.com")
	mr.ZAdd("subscribers", 1718496000000, "grace@example.com")

	req := httptest.NewRequest("GET", "/api/v1/dashboard?from=2024-06-15&to=2024-06-15", nil)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := server.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Overview struct {
			Views       int64 `json:"views"`
			Visitors    int64 `json:"visitors"`
			Subscribers int64 `json:"subscribers"`
		} `json:"overview"`
		Data struct {
			Chart []json.RawMessage `json:"chart"`
			Pages []json.RawMessage `json:"pages"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, int64(42), payload.Overview.Views)
	assert.Equal(t, int64(2), payload.Overview.Subscribers)
	assert.Len(t, payload.Data.Chart, 1)
	assert.NotNil(t, payload.Data.Pages)
}

func TestDashboardTotalsStableAcrossGranularity(t *testing.T) {
	server, mr := newTestServer(t)

	now := time.Now().UTC()
	today := now.Format(store.DayFormat)
	yesterday := now.AddDate(0, 0, -1).Format(store.DayFormat)
	mr.Set("views:day:"+today, "5")
	mr.Set("views:day:"+yesterday, "999")

	// Auckland's hourly buckets for today reach into yesterday's UTC day;
	// the range total must stay pinned to today's daily counter.
	for _, granularity := range []string{"day", "hour"} {
		url := "/api/v1/dashboard?from=" + today + "&to=" + today +
			"&timeZone=Pacific/Auckland&granularity=" + granularity
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set("Authorization", "Bearer secret-token")

		resp, err := server.Test(req, 5000)
		require.NoError(t, err)

		var payload struct {
			Overview struct {
				Views int64 `json:"views"`
			} `json:"overview"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		resp.Body.Close()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(5), payload.Overview.Views, granularity)
	}
}

func TestDashboardUnresolvableRangeEchoesClampedPagination(t *testing.T) {
	server, _ := newTestServer(t)

	// An inverted range resolves to nothing; the zeroed response still
	// echoes the pagination the roster would have applied.
	req := httptest.NewRequest("GET", "/api/v1/dashboard?from=2024-06-20&to=2024-06-10&visitorLimit=0", nil)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := server.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			Pagination struct {
				CurrentPage int `json:"current_page"`
				PerPage     int `json:"per_page"`
			} `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Data.Pagination.CurrentPage)
	assert.Equal(t, 20, payload.Data.Pagination.PerPage)
}

func TestDashboardWithQueryToken(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/dashboard?token=secret-token&from=2024-06-15", nil)
	resp, err := server.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
