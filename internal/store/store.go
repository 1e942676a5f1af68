// Package store owns the Redis connection and the key namespace used by the
// analytics engine. All other packages receive a *Store handle explicitly;
// connection lifecycle belongs to the process entrypoint.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config holds connection settings for the store.
type Config struct {
	URL string

	// Retention windows applied to written keys.
	DailyRetention   time.Duration
	HourlyRetention  time.Duration
	VisitorRetention time.Duration
}

// Store wraps a Redis client with the engine's key namespace.
type Store struct {
	client *redis.Client
	config Config
}

// New connects to Redis and verifies the connection.
func New(config Config) (*Store, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, config: config}, nil
}

// NewWithClient wraps an existing client; used by tests running against miniredis.
func NewWithClient(client *redis.Client, config Config) *Store {
	return &Store{client: client, config: config}
}

// Client exposes the underlying Redis client for pipelined command groups.
func (s *Store) Client() *redis.Client {
	return s.client
}

// DailyRetention returns the TTL for daily buckets and visitor tallies.
func (s *Store) DailyRetention() time.Duration {
	return s.config.DailyRetention
}

// HourlyRetention returns the TTL for hourly buckets.
func (s *Store) HourlyRetention() time.Duration {
	return s.config.HourlyRetention
}

// VisitorRetention returns the TTL for visitor metadata hashes.
func (s *Store) VisitorRetention() time.Duration {
	return s.config.VisitorRetention
}

// EarliestDailyViewDay scans the daily view counters and returns the smallest
// date suffix found. Dates are zero-padded ISO, so the lexicographic minimum
// is the chronological minimum. The second return is false when no daily
// bucket exists yet.
func (s *Store) EarliestDailyViewDay(ctx context.Context) (string, bool, error) {
	var (
		cursor   uint64
		earliest string
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, dailyViewPrefix+"*", 200).Result()
		if err != nil {
			return "", false, fmt.Errorf("scanning daily view keys: %w", err)
		}

		for _, key := range keys {
			day := strings.TrimPrefix(key, dailyViewPrefix)
			if earliest == "" || day < earliest {
				earliest = day
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return earliest, earliest != "", nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
