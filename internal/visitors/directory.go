// Package visitors is the visitor directory: per-visitor metadata records,
// identity links, the bounded recency list used for roster browsing, and the
// search/pagination engine on top of it.
package visitors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pariz/gountries"

	"sitepulse/internal/store"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Directory reads visitor records, identity links and recency lists.
type Directory struct {
	store       *store.Store
	logger      *slog.Logger
	searchLimit int
	countries   *gountries.Query
}

// NewDirectory returns a Directory bound to the given store handle.
// searchLimit caps how many recency entries search mode will hydrate.
func NewDirectory(st *store.Store, logger *slog.Logger, searchLimit int) *Directory {
	return &Directory{
		store:       st,
		logger:      logger,
		searchLimit: searchLimit,
		countries:   gountries.New(),
	}
}

// Query selects one of three mutually exclusive read modes: single-visitor
// (VisitorID set), search (Search set), or roster.
type Query struct {
	VisitorID string
	Search    string
	Country   string
	Page      int
	Limit     int
}

// Page is one page of hydrated visitor records.
type Page struct {
	Visitors    []Record `json:"visitors"`
	CurrentPage int      `json:"current_page"`
	TotalPages  int      `json:"total_pages"`
	TotalItems  int64    `json:"total_items"`
	PerPage     int      `json:"per_page"`
}

// recencyEntry is one parsed element of a recency list.
type recencyEntry struct {
	fingerprint string
	lastSeen    time.Time // zero for legacy entries without a timestamp
}

// parseRecencyEntry decodes "fingerprint|epochMillis". Older entries carry
// only the fingerprint; their last-seen falls back to the visitor record.
func parseRecencyEntry(raw string) (recencyEntry, bool) {
	if raw == "" {
		return recencyEntry{}, false
	}
	fingerprint, millisPart, found := strings.Cut(raw, "|")
	if fingerprint == "" {
		return recencyEntry{}, false
	}
	entry := recencyEntry{fingerprint: fingerprint}
	if found {
		if millis, err := strconv.ParseInt(millisPart, 10, 64); err == nil {
			entry.lastSeen = time.UnixMilli(millis).UTC()
		}
	}
	return entry, true
}

// RecencyEntry formats a list element for writing.
func RecencyEntry(fingerprint string, at time.Time) string {
	return fingerprint + "|" + strconv.FormatInt(at.UnixMilli(), 10)
}

// Browse answers a roster request in one of the three modes.
func (d *Directory) Browse(ctx context.Context, q Query) (*Page, error) {
	page, perPage := NormalizePagination(q.Page, q.Limit)

	switch {
	case q.VisitorID != "":
		return d.browseSingle(ctx, q.VisitorID, perPage)
	case q.Search != "":
		return d.browseSearch(ctx, q, page, perPage)
	default:
		return d.browseRoster(ctx, q, page, perPage)
	}
}

// browseSingle returns the one record as a page-1-of-1 result set, empty when
// the visitor is unknown.
func (d *Directory) browseSingle(ctx context.Context, visitorID string, perPage int) (*Page, error) {
	exists, err := d.store.Client().Exists(ctx, store.VisitorRecordKey(visitorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("checking visitor %s: %w", visitorID, err)
	}
	if exists == 0 {
		return &Page{Visitors: []Record{}, CurrentPage: 1, TotalPages: 1, PerPage: perPage}, nil
	}

	records, err := d.Hydrate(ctx, []string{visitorID})
	if err != nil {
		return nil, err
	}
	return &Page{
		Visitors:    records,
		CurrentPage: 1,
		TotalPages:  1,
		TotalItems:  int64(len(records)),
		PerPage:     perPage,
	}, nil
}

// browseSearch hydrates up to searchLimit recent entries, filters internal
// IPs, then matches the query before paginating in memory. The reported total
// is the filtered match count, independent of the requested page.
func (d *Directory) browseSearch(ctx context.Context, q Query, page, perPage int) (*Page, error) {
	listKey := d.recencyKey(q.Country)
	raw, err := d.store.Client().LRange(ctx, listKey, 0, int64(d.searchLimit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading recency list %s: %w", listKey, err)
	}

	records, err := d.hydrateEntries(ctx, raw)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]Record, 0, len(records))
	for _, record := range records {
		if IsInternalIP(record.IP) {
			continue
		}
		if d.matches(record, needle) {
			matched = append(matched, record)
		}
	}

	total := int64(len(matched))
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	return &Page{
		Visitors:    matched[start:end],
		CurrentPage: page,
		TotalPages:  totalPages(total, perPage),
		TotalItems:  total,
		PerPage:     perPage,
	}, nil
}

// browseRoster paginates the recency list directly by offset before
// hydration. Cheaper than search mode, but internal-IP entries are only
// dropped after the page is cut, so a page may carry fewer than perPage rows.
func (d *Directory) browseRoster(ctx context.Context, q Query, page, perPage int) (*Page, error) {
	listKey := d.recencyKey(q.Country)

	total, err := d.store.Client().LLen(ctx, listKey).Result()
	if err != nil {
		return nil, fmt.Errorf("sizing recency list %s: %w", listKey, err)
	}

	start := int64((page - 1) * perPage)
	raw, err := d.store.Client().LRange(ctx, listKey, start, start+int64(perPage)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading recency list %s: %w", listKey, err)
	}

	records, err := d.hydrateEntries(ctx, raw)
	if err != nil {
		return nil, err
	}

	visible := make([]Record, 0, len(records))
	for _, record := range records {
		if IsInternalIP(record.IP) {
			continue
		}
		visible = append(visible, record)
	}

	return &Page{
		Visitors:    visible,
		CurrentPage: page,
		TotalPages:  totalPages(total, perPage),
		TotalItems:  total,
		PerPage:     perPage,
	}, nil
}

func (d *Directory) recencyKey(country string) string {
	if country != "" {
		return store.RecentVisitorsCountryKey(country)
	}
	return store.RecentVisitorsKey
}

// hydrateEntries resolves raw recency entries into records, preferring the
// entry's embedded timestamp over the record's own last-seen field.
func (d *Directory) hydrateEntries(ctx context.Context, raw []string) ([]Record, error) {
	entries := make([]recencyEntry, 0, len(raw))
	for _, item := range raw {
		if entry, ok := parseRecencyEntry(item); ok {
			entries = append(entries, entry)
		}
	}

	fingerprints := make([]string, len(entries))
	for i, entry := range entries {
		fingerprints[i] = entry.fingerprint
	}

	records, err := d.Hydrate(ctx, fingerprints)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if !entries[i].lastSeen.IsZero() {
			records[i].LastSeen = entries[i].lastSeen
		}
	}
	return records, nil
}

// Hydrate fetches records and identity links for the given fingerprints in a
// single pipelined round trip, preserving order. Fingerprints whose record
// has expired still yield a minimal entry (id and alias only).
func (d *Directory) Hydrate(ctx context.Context, fingerprints []string) ([]Record, error) {
	if len(fingerprints) == 0 {
		return []Record{}, nil
	}

	pipe := d.store.Client().Pipeline()
	hashCmds := make([]*redis.StringStringMapCmd, len(fingerprints))
	identityCmds := make([]*redis.StringCmd, len(fingerprints))
	for i, fingerprint := range fingerprints {
		hashCmds[i] = pipe.HGetAll(ctx, store.VisitorRecordKey(fingerprint))
		identityCmds[i] = pipe.Get(ctx, store.IdentityKey(fingerprint))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("hydrating %d visitors: %w", len(fingerprints), err)
	}

	records := make([]Record, len(fingerprints))
	for i, fingerprint := range fingerprints {
		record, ok := parseRecord(fingerprint, hashCmds[i].Val())
		if !ok {
			record = Record{
				ID:          fingerprint,
				Name:        Alias(fingerprint),
				QueryParams: map[string]string{},
				FirstTouch:  map[string]string{},
			}
		}
		if email, err := identityCmds[i].Result(); err == nil {
			record.Email = email
		}
		records[i] = record
	}
	return records, nil
}

// matches performs the case-insensitive substring search across a record's
// identity-ish fields, including the country's human-readable name.
func (d *Directory) matches(record Record, needle string) bool {
	if needle == "" {
		return true
	}

	city := record.City
	if decoded, err := url.QueryUnescape(city); err == nil {
		city = decoded
	}

	haystacks := []string{
		record.IP,
		record.Email,
		city,
		record.Country,
		d.countryName(record.Country),
		record.Org,
		record.Referrer,
	}
	for _, hay := range haystacks {
		if hay != "" && strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func (d *Directory) countryName(code string) string {
	if code == "" {
		return ""
	}
	country, err := d.countries.FindCountryByAlpha(code)
	if err != nil {
		return ""
	}
	return country.Name.Common
}

// NormalizePagination clamps a requested page and per-page size to the
// roster's bounds. Callers that echo pagination back to the client use it so
// the echoed values match what a successful browse would have applied.
func NormalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	return page, limit
}

func totalPages(total int64, perPage int) int {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}
	return pages
}
