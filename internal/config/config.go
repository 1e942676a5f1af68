// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName        string   `mapstructure:"appname"`
	AppPort        string   `mapstructure:"appport"`
	Environment    string   `mapstructure:"environment"`
	LogLevel       LogLevel `mapstructure:"loglevel"`
	DashboardToken string   `mapstructure:"dashboardtoken"`
	SiteDomain     string   `mapstructure:"sitedomain"`
	VisitorSalt    string   `mapstructure:"visitorsalt"`

	// Store settings
	RedisURL string `mapstructure:"redisurl"`

	// File paths
	GeoDBPath string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Data retention settings
	DailyRetentionDays   int `mapstructure:"dailyretentiondays"`
	HourlyRetentionHours int `mapstructure:"hourlyretentionhours"`
	VisitorRetentionDays int `mapstructure:"visitorretentiondays"`

	// Roster settings
	RecentVisitorsCap  int `mapstructure:"recentvisitorscap"`
	VisitorSearchLimit int `mapstructure:"visitorsearchlimit"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "sitepulse")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("redisurl", "redis://localhost:6379/0")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dailyretentiondays", 90)
		v.SetDefault("hourlyretentionhours", 48)
		v.SetDefault("visitorretentiondays", 90)
		v.SetDefault("recentvisitorscap", 300)
		v.SetDefault("visitorsearchlimit", 3000)

		// Bind environment variables
		v.BindEnv("appname", "SITEPULSE_APP_NAME")
		v.BindEnv("appport", "SITEPULSE_APP_PORT")
		v.BindEnv("environment", "SITEPULSE_ENV")
		v.BindEnv("loglevel", "SITEPULSE_LOG_LEVEL")
		v.BindEnv("dashboardtoken", "SITEPULSE_DASHBOARD_TOKEN")
		v.BindEnv("sitedomain", "SITEPULSE_SITE_DOMAIN")
		v.BindEnv("visitorsalt", "SITEPULSE_VISITOR_SALT")
		v.BindEnv("redisurl", "SITEPULSE_REDIS_URL")
		v.BindEnv("geodbpath", "SITEPULSE_GEO_DB_PATH")
		v.BindEnv("logsdir", "SITEPULSE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SITEPULSE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SITEPULSE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SITEPULSE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dailyretentiondays", "SITEPULSE_DAILY_RETENTION_DAYS")
		v.BindEnv("hourlyretentionhours", "SITEPULSE_HOURLY_RETENTION_HOURS")
		v.BindEnv("visitorretentiondays", "SITEPULSE_VISITOR_RETENTION_DAYS")
		v.BindEnv("recentvisitorscap", "SITEPULSE_RECENT_VISITORS_CAP")
		v.BindEnv("visitorsearchlimit", "SITEPULSE_VISITOR_SEARCH_LIMIT")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// The dashboard is useless without a token and dangerous with a
		// guessable one, so production refuses to start without one.
		if cfg.IsProduction() && cfg.DashboardToken == "" {
			log.Fatal("Production requires SITEPULSE_DASHBOARD_TOKEN to be set")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.RedisURL == "" {
		return fmt.Errorf("redis URL must not be empty")
	}

	if c.RecentVisitorsCap <= 0 {
		return fmt.Errorf("recent visitors cap must be positive, got %d", c.RecentVisitorsCap)
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port.
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetLogLevel returns the log level as a string.
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
