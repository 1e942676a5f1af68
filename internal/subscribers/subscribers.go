// Package subscribers reads the subscriber roster's sorted set (email member,
// subscription time in epoch milliseconds as score). The set is written by
// the subscription flow outside this engine; the engine only counts
// subscription events per chart bucket.
package subscribers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/store"
)

// Reader provides read-only access to subscription timestamps.
type Reader struct {
	store *store.Store
}

func NewReader(st *store.Store) *Reader {
	return &Reader{store: st}
}

// TimestampsBetween returns subscription instants inside [from, to), oldest
// first.
func (r *Reader) TimestampsBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	entries, err := r.store.Client().ZRangeByScoreWithScores(ctx, store.SubscribersKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: "(" + strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading subscriber timestamps: %w", err)
	}

	timestamps := make([]time.Time, len(entries))
	for i, entry := range entries {
		timestamps[i] = time.UnixMilli(int64(entry.Score)).UTC()
	}
	return timestamps, nil
}

// Total returns the size of the subscriber roster.
func (r *Reader) Total(ctx context.Context) (int64, error) {
	count, err := r.store.Client().ZCard(ctx, store.SubscribersKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting subscribers: %w", err)
	}
	return count, nil
}

// CountInWindow counts timestamps falling inside [start, end).
func CountInWindow(timestamps []time.Time, start, end time.Time) int {
	count := 0
	for _, ts := range timestamps {
		if !ts.Before(start) && ts.Before(end) {
			count++
		}
	}
	return count
}
