package analytics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/store"
)

// TotalViews sums the daily view counters across the given UTC days. Totals
// always read the durable daily record, never hourly buckets, so a range
// covering "today" reports the same total before and after hourly expiry.
func (e *Engine) TotalViews(ctx context.Context, days []string) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}

	pipe := e.store.Client().Pipeline()
	cmds := make([]*redis.StringCmd, len(days))
	for i, day := range days {
		cmds[i] = pipe.Get(ctx, store.DailyViewKey(day))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("reading daily view counters: %w", err)
	}

	var total int64
	for _, cmd := range cmds {
		raw, err := cmd.Result()
		if err != nil {
			continue // missing day, no views
		}
		if count, err := strconv.ParseInt(raw, 10, 64); err == nil {
			total += count
		}
	}
	return total, nil
}

// UniqueVisitors merges the daily visitor cardinality sets across the given
// UTC days into one approximate distinct count. A fingerprint present on
// several days is counted once; the merge is probabilistic, not additive.
func (e *Engine) UniqueVisitors(ctx context.Context, days []string) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}

	keys := make([]string, len(days))
	for i, day := range days {
		keys[i] = store.DailyVisitorKey(day)
	}

	count, err := e.store.Client().PFCount(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("merging visitor cardinality sets: %w", err)
	}
	return count, nil
}

// SubscriberTotal reports the all-time size of the subscriber roster. The
// roster is not time-bucketed, so the total ignores the dashboard range.
func (e *Engine) SubscriberTotal(ctx context.Context) (int64, error) {
	return e.subscribers.Total(ctx)
}
