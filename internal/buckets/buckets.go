// Package buckets resolves caller-supplied date ranges into the ordered set of
// UTC storage buckets backing a dashboard query. Resolution is pure: the one
// piece of state it needs (the earliest stored day, for all-time ranges) is
// supplied by the caller.
package buckets

import (
	"fmt"
	"time"

	"sitepulse/internal/store"
)

// Granularity selects the bucket width for chart aggregation.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityHour Granularity = "hour"
)

// AllTime is the sentinel "from" value requesting the full stored history.
const AllTime = "all-time"

// FallbackEarliestDay anchors all-time ranges when no daily bucket exists yet.
const FallbackEarliestDay = "2024-01-01"

// Bucket describes one storage bucket: the keys holding its view counter and
// visitor cardinality set, a display label, and its absolute time window
// [Start, End).
type Bucket struct {
	ViewKey    string
	VisitorKey string
	Label      string
	Start      time.Time
	End        time.Time
}

// ResolveRequest carries the caller's range parameters.
type ResolveRequest struct {
	From        string // ISO date, "all-time", or empty for today
	To          string // ISO date, defaults to From
	TimeZone    string // IANA name, defaults to UTC
	Granularity Granularity

	// EarliestDay is the discovered earliest daily bucket, used only when
	// From is "all-time". Empty falls back to FallbackEarliestDay.
	EarliestDay string

	// HourlyRetention bounds how far back hourly buckets still exist.
	HourlyRetention time.Duration

	// Now is injectable for tests; zero means the system clock.
	Now time.Time
}

// Resolve returns the ordered bucket list for the request.
//
// Hourly granularity is honored only for explicit ranges young enough to
// still have hourly buckets; older ranges silently degrade to UTC days, since
// daily aggregates cannot be re-sliced into another timezone's day boundaries
// once the hourly data has expired. The bounded skew (at most 24h) is
// preferred over refusing to answer.
func Resolve(req ResolveRequest) ([]Bucket, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	loc := loadLocation(req.TimeZone)

	if req.From == AllTime {
		earliest := req.EarliestDay
		if _, err := time.Parse(store.DayFormat, earliest); err != nil {
			earliest = FallbackEarliestDay
		}
		return dailyBuckets(earliest, now.Format(store.DayFormat))
	}

	explicitRange := req.From != ""
	today := now.In(loc).Format(store.DayFormat)

	from := parseDayOr(req.From, today)
	to := parseDayOr(req.To, from)

	if from > to {
		return nil, fmt.Errorf("range start %s is after range end %s", from, to)
	}

	if req.Granularity == GranularityHour && explicitRange && withinHourlyRetention(from, now, req.HourlyRetention) {
		return hourlyBuckets(from, to, loc)
	}

	return dailyBuckets(from, to)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseDayOr validates an ISO date, falling back when absent or malformed.
func parseDayOr(value, fallback string) string {
	if _, err := time.Parse(store.DayFormat, value); err != nil {
		return fallback
	}
	return value
}

// withinHourlyRetention reports whether the range's first day still has
// hourly buckets in the store.
func withinHourlyRetention(from string, now time.Time, retention time.Duration) bool {
	if retention <= 0 {
		return false
	}
	start, err := time.ParseInLocation(store.DayFormat, from, time.UTC)
	if err != nil {
		return false
	}
	return now.Sub(start) <= retention
}

func dailyBuckets(from, to string) ([]Bucket, error) {
	start, err := time.ParseInLocation(store.DayFormat, from, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q: %w", from, err)
	}
	end, err := time.ParseInLocation(store.DayFormat, to, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid range end %q: %w", to, err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("range start %s is after range end %s", from, to)
	}

	var result []Bucket
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(store.DayFormat)
		result = append(result, Bucket{
			ViewKey:    store.DailyViewKey(key),
			VisitorKey: store.DailyVisitorKey(key),
			Label:      key,
			Start:      day,
			End:        day.AddDate(0, 0, 1),
		})
	}
	return result, nil
}

// hourlyBuckets emits one bucket per UTC hour whose caller-timezone calendar
// date lies within [from, to]. The scan window is widened one day on each
// side to cover timezone skew; storage keys stay UTC, only the inclusion test
// uses local time.
func hourlyBuckets(from, to string, loc *time.Location) ([]Bucket, error) {
	rangeStart, err := time.ParseInLocation(store.DayFormat, from, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q: %w", from, err)
	}
	rangeEnd, err := time.ParseInLocation(store.DayFormat, to, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid range end %q: %w", to, err)
	}

	scanStart := rangeStart.AddDate(0, 0, -1)
	scanEnd := rangeEnd.AddDate(0, 0, 2) // exclusive

	var result []Bucket
	for hour := scanStart; hour.Before(scanEnd); hour = hour.Add(time.Hour) {
		localDay := hour.In(loc).Format(store.DayFormat)
		if localDay < from || localDay > to {
			continue
		}
		key := hour.Format(store.HourFormat)
		result = append(result, Bucket{
			ViewKey:    store.HourlyViewKey(key),
			VisitorKey: store.HourlyVisitorKey(key),
			Label:      hour.Format(time.RFC3339),
			Start:      hour,
			End:        hour.Add(time.Hour),
		})
	}
	return result, nil
}

// Days returns the distinct UTC day suffixes covered by the buckets, in
// order. Totals and unique-visitor counts always read daily keys, whatever
// granularity the chart resolved to.
func Days(list []Bucket) []string {
	var days []string
	seen := make(map[string]bool, len(list))
	for _, b := range list {
		day := b.Start.UTC().Format(store.DayFormat)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}
