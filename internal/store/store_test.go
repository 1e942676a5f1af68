package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return store.NewWithClient(client, store.Config{
		DailyRetention:   90 * 24 * time.Hour,
		HourlyRetention:  48 * time.Hour,
		VisitorRetention: 90 * 24 * time.Hour,
	}), mr
}

func TestEarliestDailyViewDayEmpty(t *testing.T) {
	st, _ := newTestStore(t)

	day, found, err := st.EarliestDailyViewDay(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, day)
}

func TestEarliestDailyViewDayFindsMinimum(t *testing.T) {
	st, mr := newTestStore(t)

	mr.Set(store.DailyViewKey("2024-03-15"), "10")
	mr.Set(store.DailyViewKey("2024-01-09"), "3")
	mr.Set(store.DailyViewKey("2024-11-02"), "7")
	// Keys from other namespaces must not leak into the scan.
	mr.Set(store.HourlyViewKey("2023-12-31T23"), "1")
	mr.Set("visitor:abc", "ignored")

	day, found, err := st.EarliestDailyViewDay(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-01-09", day)
}

func TestEarliestDailyViewDayScansPastOnePage(t *testing.T) {
	st, mr := newTestStore(t)

	// More keys than one SCAN page returns.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		day := base.AddDate(0, 0, i).Format(store.DayFormat)
		mr.Set(store.DailyViewKey(day), fmt.Sprintf("%d", i))
	}

	day, found, err := st.EarliestDailyViewDay(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-01-01", day)
}

func TestDayAndHourKeysUseUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:30 local on June 14 is already June 15 in UTC.
	instant := time.Date(2024, 6, 14, 23, 30, 0, 0, loc)

	assert.Equal(t, "2024-06-15", store.DayKey(instant))
	assert.Equal(t, "2024-06-15T03", store.HourKey(instant))
}

func TestCountryScopedKeysUpperCaseCountry(t *testing.T) {
	assert.Equal(t, "pages:DE:2024-06-15", store.CountryPageTallyKey("de", "2024-06-15"))
	assert.Equal(t, "cities:DE:2024-06-15", store.CountryCityTallyKey("De", "2024-06-15"))
	assert.Equal(t, "referrers:DE:2024-06-15", store.CountryReferrerTallyKey("DE", "2024-06-15"))
	assert.Equal(t, "recent:visitors:DE", store.RecentVisitorsCountryKey("de"))
}
