package analytics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/buckets"
	"sitepulse/internal/subscribers"
)

// ChartSeries produces one point per resolved bucket, each carrying the
// bucket's own view count, its own approximate unique-visitor count, and the
// number of subscription events whose timestamp falls inside the bucket's
// window. Subscription instants are matched against bucket start/end, not
// against any per-bucket subscription counter.
func (e *Engine) ChartSeries(ctx context.Context, list []buckets.Bucket) ([]ChartPoint, error) {
	if len(list) == 0 {
		return []ChartPoint{}, nil
	}

	subTimes, err := e.subscribers.TimestampsBetween(ctx, list[0].Start, list[len(list)-1].End)
	if err != nil {
		return nil, err
	}

	pipe := e.store.Client().Pipeline()
	viewCmds := make([]*redis.StringCmd, len(list))
	visitorCmds := make([]*redis.IntCmd, len(list))
	for i, bucket := range list {
		viewCmds[i] = pipe.Get(ctx, bucket.ViewKey)
		visitorCmds[i] = pipe.PFCount(ctx, bucket.VisitorKey)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("reading chart buckets: %w", err)
	}

	points := make([]ChartPoint, len(list))
	for i, bucket := range list {
		point := ChartPoint{
			Label:         bucket.Label,
			Subscriptions: subscribers.CountInWindow(subTimes, bucket.Start, bucket.End),
		}
		if raw, err := viewCmds[i].Result(); err == nil {
			if views, err := strconv.ParseInt(raw, 10, 64); err == nil {
				point.Views = views
			}
		}
		if count, err := visitorCmds[i].Result(); err == nil {
			point.Visitors = count
		}
		points[i] = point
	}
	return points, nil
}
