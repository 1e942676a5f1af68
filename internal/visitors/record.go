package visitors

import (
	"strconv"
	"strings"
	"time"
)

// Visitor hash field names. Open-ended attributes live beside the fixed
// fields under two prefixes: query parameters as "qp:<key>" and the
// first-touch attribution snapshot as "ft:<key>". The prefixes are stripped
// when reading the hash back into the two attribute maps.
const (
	fieldIP        = "ip"
	fieldCountry   = "country"
	fieldCity      = "city"
	fieldReferrer  = "referrer"
	fieldUserAgent = "ua"
	fieldOrg       = "org"
	fieldLastSeen  = "last_seen"

	queryParamPrefix = "qp:"
	firstTouchPrefix = "ft:"
)

// Record is one visitor's stored metadata, hydrated with its identity link
// and display alias.
type Record struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email,omitempty"`
	IP          string            `json:"ip"`
	Country     string            `json:"country"`
	City        string            `json:"city"`
	Referrer    string            `json:"referrer"`
	UserAgent   string            `json:"userAgent"`
	Org         string            `json:"org"`
	LastSeen    time.Time         `json:"lastSeen"`
	QueryParams map[string]string `json:"queryParams"`
	FirstTouch  map[string]string `json:"firstTouch"`
}

// RecordFields flattens the fixed metadata of a visit into hash fields for
// writing. Attribute maps are written separately so first-touch fields can
// keep their write-once semantics.
func RecordFields(ip, country, city, referrer, userAgent, org string, lastSeen time.Time) map[string]interface{} {
	return map[string]interface{}{
		fieldIP:        ip,
		fieldCountry:   country,
		fieldCity:      city,
		fieldReferrer:  referrer,
		fieldUserAgent: userAgent,
		fieldOrg:       org,
		fieldLastSeen:  strconv.FormatInt(lastSeen.UnixMilli(), 10),
	}
}

// QueryParamField returns the hash field name for a tracked query parameter.
func QueryParamField(key string) string {
	return queryParamPrefix + key
}

// FirstTouchField returns the hash field name for a first-touch attribute.
func FirstTouchField(key string) string {
	return firstTouchPrefix + key
}

// parseRecord decodes a visitor hash. Returns false when the hash is empty
// (expired or never written).
func parseRecord(fingerprint string, fields map[string]string) (Record, bool) {
	if len(fields) == 0 {
		return Record{}, false
	}

	record := Record{
		ID:          fingerprint,
		Name:        Alias(fingerprint),
		IP:          fields[fieldIP],
		Country:     fields[fieldCountry],
		City:        fields[fieldCity],
		Referrer:    fields[fieldReferrer],
		UserAgent:   fields[fieldUserAgent],
		Org:         fields[fieldOrg],
		QueryParams: map[string]string{},
		FirstTouch:  map[string]string{},
	}

	if millis, err := strconv.ParseInt(fields[fieldLastSeen], 10, 64); err == nil {
		record.LastSeen = time.UnixMilli(millis).UTC()
	}

	for field, value := range fields {
		switch {
		case strings.HasPrefix(field, queryParamPrefix):
			record.QueryParams[strings.TrimPrefix(field, queryParamPrefix)] = value
		case strings.HasPrefix(field, firstTouchPrefix):
			record.FirstTouch[strings.TrimPrefix(field, firstTouchPrefix)] = value
		}
	}

	return record, true
}
