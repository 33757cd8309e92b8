// Package config assembles the application configuration from environment
// variables and the optional YAML rules overlay.
package config

import (
	"time"

	"pagefeed/pkg/config"
)

// Config carries every tunable the service reads at startup. All values have
// working defaults; invalid env input falls back with a logged warning.
type Config struct {
	// HTTP surface
	Port    int
	BaseURL string
	Env     string // "production" or "development"
	Version string

	// Feed output
	CacheDuration      time.Duration // drives Cache-Control max-age and channel ttl
	MaxArticlesPerFeed int           // hard ceiling; request limit is min(limit, ceiling)
	Generator          string

	// Result cache
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	// Origin fetching
	RequestTimeout   time.Duration
	DiscoveryTimeout time.Duration
	FetchMinGap      time.Duration
	DiscoveryMinGap  time.Duration
	UserAgent        string // empty = rotate built-in browser identities

	// Discovery
	ExtraStrategies bool   // sitemap/robots/content-mining probes
	RulesFile       string // optional YAML overlay, see rules.go

	// Client-facing rate limiting
	RateLimitEnabled bool
	RateLimitCeiling int
	RateLimitWindow  time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:    config.GetEnvInt("PORT", 8080),
		BaseURL: config.GetEnvString("BASE_URL", "http://localhost:8080"),
		Env:     config.GetEnvString("APP_ENV", "production"),
		Version: config.GetEnvString("VERSION", "dev"),

		CacheDuration:      time.Duration(config.GetEnvInt("CACHE_DURATION", 3600)) * time.Second,
		MaxArticlesPerFeed: config.GetEnvInt("MAX_ARTICLES_PER_FEED", 20),
		Generator:          config.GetEnvString("FEED_GENERATOR", "pagefeed"),

		CacheMaxEntries:    config.GetEnvInt("CACHE_MAX_ENTRIES", 100),
		CacheSweepInterval: config.GetEnvDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),

		RequestTimeout:   time.Duration(config.GetEnvInt("REQUEST_TIMEOUT_MS", 10000)) * time.Millisecond,
		DiscoveryTimeout: time.Duration(config.GetEnvInt("DISCOVERY_TIMEOUT_MS", 5000)) * time.Millisecond,
		FetchMinGap:      time.Duration(config.GetEnvInt("FETCH_MIN_GAP_MS", 100)) * time.Millisecond,
		DiscoveryMinGap:  time.Duration(config.GetEnvInt("DISCOVERY_MIN_GAP_MS", 200)) * time.Millisecond,
		UserAgent:        config.GetEnvString("USER_AGENT", ""),

		ExtraStrategies: config.GetEnvBool("DISCOVERY_EXTRA_STRATEGIES", false),
		RulesFile:       config.GetEnvString("RULES_FILE", ""),

		RateLimitEnabled: config.GetEnvBool("RATELIMIT_ENABLED", true),
		RateLimitCeiling: config.GetEnvInt("RATELIMIT_CEILING", 60),
		RateLimitWindow:  config.GetEnvDuration("RATELIMIT_WINDOW", 1*time.Minute),
	}
}

// Validate rejects configurations that cannot serve traffic. Unlike env
// parsing (warn + default), these are operator mistakes worth failing on.
func (c Config) Validate() error {
	if err := config.ValidatePositiveDuration(c.CacheDuration); err != nil {
		return &ConfigError{Field: "CACHE_DURATION", Err: err}
	}
	if err := config.ValidatePositiveDuration(c.RequestTimeout); err != nil {
		return &ConfigError{Field: "REQUEST_TIMEOUT_MS", Err: err}
	}
	if err := config.ValidateDurationRange(c.CacheSweepInterval, time.Minute, time.Hour); err != nil {
		return &ConfigError{Field: "CACHE_SWEEP_INTERVAL", Err: err}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "PORT", Err: errPortRange}
	}
	if c.MaxArticlesPerFeed <= 0 {
		return &ConfigError{Field: "MAX_ARTICLES_PER_FEED", Err: errNotPositive}
	}
	if c.CacheMaxEntries <= 0 {
		return &ConfigError{Field: "CACHE_MAX_ENTRIES", Err: errNotPositive}
	}
	return nil
}

// CacheDurationSeconds returns the cache duration as whole seconds, the unit
// used in Cache-Control and the synthesized channel ttl.
func (c Config) CacheDurationSeconds() int {
	return int(c.CacheDuration / time.Second)
}
