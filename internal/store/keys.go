package store

import (
	"strings"
	"time"
)

// Bucket date formats. Keys are always derived from UTC instants.
const (
	DayFormat  = "2006-01-02"
	HourFormat = "2006-01-02T15"
)

const (
	dailyViewPrefix  = "views:day:"
	hourlyViewPrefix = "views:hour:"
)

// SubscribersKey is the sorted set of subscriber emails scored by
// subscription time in epoch milliseconds. Read-only for this engine.
const SubscribersKey = "subscribers"

// RecentVisitorsKey is the global bounded recency list of
// "fingerprint|epochMillis" entries, newest first.
const RecentVisitorsKey = "recent:visitors"

// DayKey formats a UTC instant as a daily bucket suffix.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// HourKey formats a UTC instant as an hourly bucket suffix.
func HourKey(t time.Time) string {
	return t.UTC().Format(HourFormat)
}

// DailyViewKey is the scalar view counter for one UTC day.
func DailyViewKey(day string) string {
	return dailyViewPrefix + day
}

// HourlyViewKey is the scalar view counter for one UTC hour. Hourly buckets
// are a volatile cache; the daily counter is the durable record.
func HourlyViewKey(hour string) string {
	return hourlyViewPrefix + hour
}

// DailyVisitorKey is the HyperLogLog of visitor fingerprints for one UTC day.
func DailyVisitorKey(day string) string {
	return "uv:day:" + day
}

// HourlyVisitorKey is the HyperLogLog of visitor fingerprints for one UTC hour.
func HourlyVisitorKey(hour string) string {
	return "uv:hour:" + hour
}

// PageTallyKey is the per-day ranked tally of page paths.
func PageTallyKey(day string) string {
	return "pages:" + day
}

// CountryTallyKey is the per-day ranked tally of country codes.
func CountryTallyKey(day string) string {
	return "countries:" + day
}

// CityTallyKey is the per-day ranked tally of city names.
func CityTallyKey(day string) string {
	return "cities:" + day
}

// ReferrerTallyKey is the per-day ranked tally of referrer hostnames.
func ReferrerTallyKey(day string) string {
	return "referrers:" + day
}

// VisitorTallyKey is the per-day ranked tally of visitor fingerprints by views.
func VisitorTallyKey(day string) string {
	return "visitors:" + day
}

// Country-scoped variants back the dashboard's country drill-down. The
// country segment is upper-cased so writes and reads agree regardless of
// the casing the edge or the query string carried.

func CountryPageTallyKey(country, day string) string {
	return "pages:" + strings.ToUpper(country) + ":" + day
}

func CountryCityTallyKey(country, day string) string {
	return "cities:" + strings.ToUpper(country) + ":" + day
}

func CountryReferrerTallyKey(country, day string) string {
	return "referrers:" + strings.ToUpper(country) + ":" + day
}

// VisitorRecordKey is the metadata hash for one visitor fingerprint.
func VisitorRecordKey(fingerprint string) string {
	return "visitor:" + fingerprint
}

// VisitorPagesKey is the per-visitor ranked tally of viewed paths, backing the
// single-visitor drill-down.
func VisitorPagesKey(fingerprint string) string {
	return "visitor:pages:" + fingerprint
}

// IdentityKey maps a fingerprint to an identified email once a visitor
// subscribes. Durable: no expiry.
func IdentityKey(fingerprint string) string {
	return "identity:" + fingerprint
}

// RecentVisitorsCountryKey is the country-scoped recency list. Upper-cased
// for the same reason as the country-scoped tallies.
func RecentVisitorsCountryKey(country string) string {
	return RecentVisitorsKey + ":" + strings.ToUpper(country)
}
