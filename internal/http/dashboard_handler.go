package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitepulse/internal/analytics"
	"sitepulse/internal/buckets"
	"sitepulse/internal/pkg/async"
	"sitepulse/internal/pkg/referrers"
	"sitepulse/internal/store"
	"sitepulse/internal/visitors"
)

// DashboardResponse is the full dashboard read model for one query.
type DashboardResponse struct {
	Overview Overview      `json:"overview"`
	Data     DashboardData `json:"data"`
}

type Overview struct {
	Views       int64 `json:"views"`
	Visitors    int64 `json:"visitors"`
	Subscribers int64 `json:"subscribers"`
}

type DashboardData struct {
	Chart          []analytics.ChartPoint `json:"chart"`
	Pages          []analytics.Stat       `json:"pages"`
	Countries      []analytics.Stat       `json:"countries"`
	Cities         []analytics.Stat       `json:"cities"`
	Referrers      []analytics.Stat       `json:"referrers"`
	TopVisitors    []analytics.TopVisitor `json:"topVisitors"`
	RecentVisitors []visitors.Record      `json:"recentVisitors"`
	Pagination     PaginationData         `json:"pagination"`
}

type PaginationData struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	PerPage     int   `json:"per_page"`
}

// dashboardQuery carries the parsed request parameters.
type dashboardQuery struct {
	From        string
	To          string
	TimeZone    string
	Granularity buckets.Granularity
	Country     string
	VisitorID   string
	Search      string
	Page        int
	Limit       int
}

// DashboardDeps bundles what the dashboard facade reads from.
type DashboardDeps struct {
	Store           *store.Store
	Engine          *analytics.Engine
	Directory       *visitors.Directory
	Logger          *slog.Logger
	HourlyRetention time.Duration
}

// NewDashboardHandler stitches the bucket resolver, aggregation engine and
// visitor directory into one dashboard response. A store failure yields a
// structurally valid, zeroed response: the dashboard renders "no data", never
// an error page.
func NewDashboardHandler(deps DashboardDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := dashboardQuery{
			From:        c.Query("from"),
			To:          c.Query("to"),
			TimeZone:    c.Query("timeZone", "UTC"),
			Granularity: buckets.Granularity(c.Query("granularity", string(buckets.GranularityDay))),
			Country:     c.Query("country"),
			VisitorID:   c.Query("visitorId"),
			Search:      c.Query("search"),
			Page:        c.QueryInt("visitorPage", 1),
			Limit:       c.QueryInt("visitorLimit", 20),
		}
		query.Page, query.Limit = visitors.NormalizePagination(query.Page, query.Limit)

		deps.Logger.Info("Dashboard query",
			slog.String("from", query.From),
			slog.String("to", query.To),
			slog.String("timeZone", query.TimeZone),
			slog.String("granularity", string(query.Granularity)))

		response := fetchDashboard(c.UserContext(), deps, query)
		return c.JSON(response)
	}
}

func fetchDashboard(ctx context.Context, deps DashboardDeps, query dashboardQuery) *DashboardResponse {
	response := emptyDashboard(query)

	var earliestDay string
	if query.From == buckets.AllTime {
		day, found, err := deps.Store.EarliestDailyViewDay(ctx)
		if err != nil {
			deps.Logger.Error("Failed to discover earliest bucket", slog.Any("error", err))
			return response
		}
		if found {
			earliestDay = day
		}
	}

	bucketList, err := buckets.Resolve(buckets.ResolveRequest{
		From:            query.From,
		To:              query.To,
		TimeZone:        query.TimeZone,
		Granularity:     query.Granularity,
		EarliestDay:     earliestDay,
		HourlyRetention: deps.HourlyRetention,
	})
	if err != nil {
		deps.Logger.Warn("Unresolvable date range", slog.Any("error", err))
		return response
	}

	// Day-keyed reads (totals, tallies) always use the daily enumeration of
	// the range. Hourly bucket lists can reach into a neighboring UTC day
	// for non-UTC time zones, and that day must not leak into the totals
	// when the granularity toggles.
	dailyList, err := buckets.Resolve(buckets.ResolveRequest{
		From:        query.From,
		To:          query.To,
		TimeZone:    query.TimeZone,
		Granularity: buckets.GranularityDay,
		EarliestDay: earliestDay,
	})
	if err != nil {
		deps.Logger.Warn("Unresolvable date range", slog.Any("error", err))
		return response
	}

	days := buckets.Days(dailyList)
	engine := deps.Engine

	tasks := []async.Task{
		{
			Name: "views",
			Execute: func() (interface{}, error) {
				return engine.TotalViews(ctx, days)
			},
		},
		{
			Name: "visitors",
			Execute: func() (interface{}, error) {
				return engine.UniqueVisitors(ctx, days)
			},
		},
		{
			Name: "subscriberTotal",
			Execute: func() (interface{}, error) {
				return engine.SubscriberTotal(ctx)
			},
		},
		{
			Name: "chart",
			Execute: func() (interface{}, error) {
				return engine.ChartSeries(ctx, bucketList)
			},
		},
		{
			Name: "pages",
			Execute: func() (interface{}, error) {
				if query.VisitorID != "" {
					return engine.VisitorPages(ctx, query.VisitorID)
				}
				return engine.TopPages(ctx, days, query.Country)
			},
		},
		{
			Name: "countries",
			Execute: func() (interface{}, error) {
				return engine.TopCountries(ctx, days)
			},
		},
		{
			Name: "cities",
			Execute: func() (interface{}, error) {
				return engine.TopCities(ctx, days, query.Country)
			},
		},
		{
			Name: "referrers",
			Execute: func() (interface{}, error) {
				if query.VisitorID != "" {
					return engine.VisitorReferrers(ctx, query.VisitorID)
				}
				return engine.TopReferrers(ctx, days, query.Country)
			},
		},
		{
			Name: "topVisitors",
			Execute: func() (interface{}, error) {
				return engine.TopVisitors(ctx, days, query.Country)
			},
		},
		{
			Name: "roster",
			Execute: func() (interface{}, error) {
				return deps.Directory.Browse(ctx, visitors.Query{
					VisitorID: query.VisitorID,
					Search:    query.Search,
					Country:   query.Country,
					Page:      query.Page,
					Limit:     query.Limit,
				})
			},
		},
	}

	pool := async.NewPool(6)
	results := pool.Execute(ctx, tasks)

	// A failed read yields zero counts for that part of the response; the
	// dashboard cannot distinguish it from "no data yet".
	for name, result := range results {
		if result.Err != nil {
			deps.Logger.Error("Dashboard task failed",
				slog.String("task", name),
				slog.Any("error", result.Err))
		}
	}

	if views, ok := results["views"].Data.(int64); ok {
		response.Overview.Views = views
	}
	if uniques, ok := results["visitors"].Data.(int64); ok {
		response.Overview.Visitors = uniques
	}
	if subs, ok := results["subscriberTotal"].Data.(int64); ok {
		response.Overview.Subscribers = subs
	}
	if chart, ok := results["chart"].Data.([]analytics.ChartPoint); ok {
		response.Data.Chart = chart
	}
	response.Data.Pages = statsOrEmpty(results, "pages")
	response.Data.Countries = convertCountryStats(statsOrEmpty(results, "countries"))
	response.Data.Cities = statsOrEmpty(results, "cities")
	response.Data.Referrers = convertReferrerStats(statsOrEmpty(results, "referrers"))
	if top, ok := results["topVisitors"].Data.([]analytics.TopVisitor); ok {
		response.Data.TopVisitors = top
	}
	if roster, ok := results["roster"].Data.(*visitors.Page); ok && roster != nil {
		response.Data.RecentVisitors = roster.Visitors
		response.Data.Pagination = PaginationData{
			CurrentPage: roster.CurrentPage,
			TotalPages:  roster.TotalPages,
			TotalItems:  roster.TotalItems,
			PerPage:     roster.PerPage,
		}
	}

	return response
}

func emptyDashboard(query dashboardQuery) *DashboardResponse {
	return &DashboardResponse{
		Data: DashboardData{
			Chart:          []analytics.ChartPoint{},
			Pages:          []analytics.Stat{},
			Countries:      []analytics.Stat{},
			Cities:         []analytics.Stat{},
			Referrers:      []analytics.Stat{},
			TopVisitors:    []analytics.TopVisitor{},
			RecentVisitors: []visitors.Record{},
			Pagination: PaginationData{
				CurrentPage: 1,
				TotalPages:  1,
				PerPage:     query.Limit,
			},
		},
	}
}

func statsOrEmpty(results map[string]async.Result, name string) []analytics.Stat {
	if result, exists := results[name]; exists {
		if stats, ok := result.Data.([]analytics.Stat); ok && stats != nil {
			return stats
		}
	}
	return []analytics.Stat{}
}

// convertCountryStats swaps ISO codes for human-readable country names.
func convertCountryStats(items []analytics.Stat) []analytics.Stat {
	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make([]analytics.Stat, len(items))
	for i, item := range items {
		country, err := countries.FindCountryByAlpha(item.Name)
		if err != nil {
			result[i] = analytics.Stat{Name: caser.String(item.Name), Value: item.Value}
		} else {
			result[i] = analytics.Stat{Name: country.Name.Common, Value: item.Value}
		}
	}
	return result
}

// convertReferrerStats swaps referrer hostnames for friendly names.
func convertReferrerStats(items []analytics.Stat) []analytics.Stat {
	result := make([]analytics.Stat, len(items))
	for i, item := range items {
		result[i] = analytics.Stat{Name: referrers.DisplayName(item.Name), Value: item.Value}
	}
	return result
}
