// Package geoip backfills country and city for visits whose edge middleware
// did not supply them. The GeoLite2 database is optional; a nil Resolver is
// safe to call and resolves nothing.
package geoip

import (
	"log/slog"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"
)

// Resolver wraps a GeoLite2 city database.
type Resolver struct {
	reader *geoip2.Reader
	logger *slog.Logger
}

// Location is the subset of geo data the analytics engine records.
type Location struct {
	CountryCode string
	City        string
}

// New opens the database at path. A missing or unconfigured database is not
// an error: geo enrichment is simply disabled and (nil, nil) is returned.
func New(path string, logger *slog.Logger) (*Resolver, error) {
	if path == "" {
		logger.Debug("GeoIP database path not configured, geo enrichment disabled")
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("GeoLite2 database not found, geo enrichment disabled",
			slog.String("path", path),
			slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		return nil, nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	logger.Info("GeoIP database loaded", slog.String("path", path))
	return &Resolver{reader: reader, logger: logger}, nil
}

// Lookup resolves an IP address to country and city. Unresolvable addresses
// yield an empty Location.
func (r *Resolver) Lookup(address string) Location {
	if r == nil || r.reader == nil {
		return Location{}
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return Location{}
	}

	city, err := r.reader.City(ip)
	if err != nil {
		r.logger.Debug("GeoIP lookup failed", slog.String("ip", address), slog.Any("error", err))
		return Location{}
	}

	return Location{
		CountryCode: city.Country.IsoCode,
		City:        city.City.Names["en"],
	}
}

// Close releases the database handle.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
