package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"golang.org/x/text/cases"

	"sitepulse/internal/store"
)

// TopPages merges the per-day page tallies for the range. A country filter
// substitutes the country-scoped tally keys.
func (e *Engine) TopPages(ctx context.Context, days []string, country string) ([]Stat, error) {
	return e.mergeTallies(ctx, tallyKeys(days, country, store.PageTallyKey, store.CountryPageTallyKey))
}

// TopCountries merges the per-day country tallies for the range.
func (e *Engine) TopCountries(ctx context.Context, days []string) ([]Stat, error) {
	keys := make([]string, len(days))
	for i, day := range days {
		keys[i] = store.CountryTallyKey(day)
	}
	return e.mergeTallies(ctx, keys)
}

// TopCities merges the per-day city tallies for the range, country-scoped
// when a filter is supplied.
func (e *Engine) TopCities(ctx context.Context, days []string, country string) ([]Stat, error) {
	return e.mergeTallies(ctx, tallyKeys(days, country, store.CityTallyKey, store.CountryCityTallyKey))
}

// TopReferrers merges the per-day referrer tallies for the range,
// country-scoped when a filter is supplied.
func (e *Engine) TopReferrers(ctx context.Context, days []string, country string) ([]Stat, error) {
	return e.mergeTallies(ctx, tallyKeys(days, country, store.ReferrerTallyKey, store.CountryReferrerTallyKey))
}

func tallyKeys(days []string, country string, global func(string) string, scoped func(string, string) string) []string {
	keys := make([]string, len(days))
	for i, day := range days {
		if country != "" {
			keys[i] = scoped(country, day)
		} else {
			keys[i] = global(day)
		}
	}
	return keys
}

// mergedEntry accumulates one case-folded label across buckets. The display
// form is the casing variant with the highest cumulative score.
type mergedEntry struct {
	total   float64
	casings map[string]float64
}

// mergeTallies reads every tally key in one pipelined round trip and merges
// same labels case-insensitively, summing scores. The result is sorted by
// merged score descending (ties broken by name for determinism, so merging
// is idempotent under bucket reordering) and truncated to TopListLimit.
// Labels equal to "unknown" or under the administrative path prefix are
// dropped.
func (e *Engine) mergeTallies(ctx context.Context, keys []string) ([]Stat, error) {
	if len(keys) == 0 {
		return []Stat{}, nil
	}

	pipe := e.store.Client().Pipeline()
	cmds := make([]*redis.ZSliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.ZRangeWithScores(ctx, key, 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("reading ranked tallies: %w", err)
	}

	folder := cases.Fold()
	merged := make(map[string]*mergedEntry)
	for _, cmd := range cmds {
		for _, member := range cmd.Val() {
			label, ok := member.Member.(string)
			if !ok || excludedLabel(label) {
				continue
			}
			folded := folder.String(label)
			entry := merged[folded]
			if entry == nil {
				entry = &mergedEntry{casings: make(map[string]float64)}
				merged[folded] = entry
			}
			entry.total += member.Score
			entry.casings[label] += member.Score
		}
	}

	stats := make([]Stat, 0, len(merged))
	for _, entry := range merged {
		stats = append(stats, Stat{
			Name:  entry.displayName(),
			Value: int64(math.Round(entry.total)),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			return stats[i].Value > stats[j].Value
		}
		return stats[i].Name < stats[j].Name
	})

	if len(stats) > TopListLimit {
		stats = stats[:TopListLimit]
	}
	return stats, nil
}

func (entry *mergedEntry) displayName() string {
	var (
		best      string
		bestScore = math.Inf(-1)
	)
	for casing, score := range entry.casings {
		if score > bestScore || (score == bestScore && casing < best) {
			best = casing
			bestScore = score
		}
	}
	return best
}

// excludedLabel filters placeholder and administrative entries from every
// ranked read model.
func excludedLabel(label string) bool {
	return strings.EqualFold(label, "unknown") || strings.HasPrefix(label, AdminPathPrefix)
}
