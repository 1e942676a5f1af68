package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"sitepulse/internal/store"
	"sitepulse/internal/visitors"
)

// hydrateLimit bounds how many ranked fingerprints are hydrated before the
// internal-IP and country filters cut the list down to TopListLimit.
const hydrateLimit = 150

// TopVisitor is a ranked visitor hydrated with its stored record.
type TopVisitor struct {
	visitors.Record
	Views int64 `json:"views"`
}

// TopVisitors merges the per-day visitor tallies, hydrates the leaders with
// their records and identity links, discards visitors on loopback or private
// networks (the operator browsing their own site), applies the optional
// country filter, and caps the result.
func (e *Engine) TopVisitors(ctx context.Context, days []string, country string) ([]TopVisitor, error) {
	ranked, err := e.mergedVisitorTotals(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(ranked) > hydrateLimit {
		ranked = ranked[:hydrateLimit]
	}

	fingerprints := make([]string, len(ranked))
	for i, stat := range ranked {
		fingerprints[i] = stat.Name
	}
	records, err := e.directory.Hydrate(ctx, fingerprints)
	if err != nil {
		return nil, err
	}

	result := make([]TopVisitor, 0, len(records))
	for i, record := range records {
		if visitors.IsInternalIP(record.IP) {
			continue
		}
		if country != "" && !strings.EqualFold(record.Country, country) {
			continue
		}
		result = append(result, TopVisitor{Record: record, Views: ranked[i].Value})
		if len(result) == TopListLimit {
			break
		}
	}
	return result, nil
}

// mergedVisitorTotals sums each fingerprint's view tallies across the day
// range, sorted descending.
func (e *Engine) mergedVisitorTotals(ctx context.Context, days []string) ([]Stat, error) {
	keys := make([]string, len(days))
	for i, day := range days {
		keys[i] = store.VisitorTallyKey(day)
	}

	pipe := e.store.Client().Pipeline()
	cmds := make([]*redis.ZSliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.ZRangeWithScores(ctx, key, 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("reading visitor tallies: %w", err)
	}

	totals := make(map[string]float64)
	for _, cmd := range cmds {
		for _, member := range cmd.Val() {
			if fingerprint, ok := member.Member.(string); ok {
				totals[fingerprint] += member.Score
			}
		}
	}

	stats := make([]Stat, 0, len(totals))
	for fingerprint, total := range totals {
		stats = append(stats, Stat{Name: fingerprint, Value: int64(math.Round(total))})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			return stats[i].Value > stats[j].Value
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// VisitorPages is the single-visitor drill-down: that visitor's own page
// tally, most viewed first.
func (e *Engine) VisitorPages(ctx context.Context, fingerprint string) ([]Stat, error) {
	members, err := e.store.Client().ZRevRangeWithScores(ctx, store.VisitorPagesKey(fingerprint), 0, TopListLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading pages for visitor %s: %w", fingerprint, err)
	}

	stats := make([]Stat, 0, len(members))
	for _, member := range members {
		label, ok := member.Member.(string)
		if !ok || excludedLabel(label) {
			continue
		}
		stats = append(stats, Stat{Name: label, Value: int64(math.Round(member.Score))})
	}
	return stats, nil
}

// VisitorReferrers reduces the referrer list to the visitor's single stored
// referrer, weighted by their total recorded views. An unknown referrer
// yields an empty list.
func (e *Engine) VisitorReferrers(ctx context.Context, fingerprint string) ([]Stat, error) {
	records, err := e.directory.Hydrate(ctx, []string{fingerprint})
	if err != nil {
		return nil, err
	}
	referrer := records[0].Referrer
	if referrer == "" || strings.EqualFold(referrer, "unknown") {
		return []Stat{}, nil
	}

	pages, err := e.VisitorPages(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, page := range pages {
		total += page.Value
	}
	return []Stat{{Name: referrer, Value: total}}, nil
}
