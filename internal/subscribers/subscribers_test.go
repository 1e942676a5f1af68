package subscribers_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/store"
	"sitepulse/internal/subscribers"
)

func newTestReader(t *testing.T) (*subscribers.Reader, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return subscribers.NewReader(store.NewWithClient(client, store.Config{})), mr
}

func TestTimestampsBetween(t *testing.T) {
	reader, mr := newTestReader(t)

	from := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mr.ZAdd("subscribers", float64(from.Add(-time.Second).UnixMilli()), "before@example.com")
	mr.ZAdd("subscribers", float64(from.UnixMilli()), "at-start@example.com")
	mr.ZAdd("subscribers", float64(from.Add(12*time.Hour).UnixMilli()), "midday@example.com")
	mr.ZAdd("subscribers", float64(to.UnixMilli()), "at-end@example.com")

	timestamps, err := reader.TimestampsBetween(context.Background(), from, to)
	require.NoError(t, err)

	// Start inclusive, end exclusive.
	require.Len(t, timestamps, 2)
	assert.Equal(t, from, timestamps[0])
	assert.Equal(t, from.Add(12*time.Hour), timestamps[1])
}

func TestTimestampsBetweenEmptySet(t *testing.T) {
	reader, _ := newTestReader(t)

	timestamps, err := reader.TimestampsBetween(context.Background(),
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, timestamps)
}

func TestTotal(t *testing.T) {
	reader, mr := newTestReader(t)

	mr.ZAdd("subscribers", 1718400000000, "one@example.com")
	mr.ZAdd("subscribers", 1718500000000, "two@example.com")

	total, err := reader.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestCountInWindow(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	timestamps := []time.Time{
		start.Add(-time.Minute),
		start,
		start.Add(30 * time.Minute),
		end,
	}

	assert.Equal(t, 2, subscribers.CountInWindow(timestamps, start, end))
	assert.Zero(t, subscribers.CountInWindow(nil, start, end))
}
