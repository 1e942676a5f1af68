// Package analytics is the read-side aggregation engine: it merges the
// time-bucketed counters, cardinality sets and ranked tallies written by the
// ingest package into the dashboard's read model.
//
// The package is organized into focused modules:
//   - analytics.go: engine definition and shared result types
//   - totals.go: range totals (views, unique visitors)
//   - chart.go: per-bucket time series points
//   - topk.go: ranked top-K merges with case-insensitive label folding
//   - topvisitors.go: top-visitor ranking, hydration and drill-downs
package analytics

import (
	"log/slog"

	"sitepulse/internal/store"
	"sitepulse/internal/subscribers"
	"sitepulse/internal/visitors"
)

// TopListLimit caps every ranked list in the read model.
const TopListLimit = 50

// AdminPathPrefix marks the dashboard's own pages; tallies under it never
// appear in ranked output.
const AdminPathPrefix = "/dash"

// Stat is one ranked entry in a top-K list.
type Stat struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ChartPoint is one bucket of the dashboard time series.
type ChartPoint struct {
	Label         string `json:"label"`
	Views         int64  `json:"views"`
	Visitors      int64  `json:"visitors"`
	Subscriptions int    `json:"subscriptions"`
}

// Engine aggregates bucketed analytics data from the store.
type Engine struct {
	store       *store.Store
	directory   *visitors.Directory
	subscribers *subscribers.Reader
	logger      *slog.Logger
}

func NewEngine(st *store.Store, directory *visitors.Directory, subs *subscribers.Reader, logger *slog.Logger) *Engine {
	return &Engine{
		store:       st,
		directory:   directory,
		subscribers: subs,
		logger:      logger,
	}
}
