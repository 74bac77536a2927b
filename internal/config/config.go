// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret is the HMAC secret shared with the identity provider. Required.
	JWTSecret string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to the web and Expo dev servers.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request body size. Defaults to 1 MiB.
	MaxBodyBytes int64

	// CleanupInterval is how often the expiry sweep fires. Defaults to 1h.
	CleanupInterval time.Duration

	// ExpiryWindow is the age after which an active request is expired
	// regardless of its travel date. Defaults to 24h.
	ExpiryWindow time.Duration

	// ReopenOnWithdraw lets a completed request return to active when an
	// accepted vote is withdrawn. Defaults to true.
	ReopenOnWithdraw bool

	// AllowSelfVote lets owners vote on their own requests. Defaults to false.
	AllowSelfVote bool

	// RedisURL enables the cross-replica sweep lease when set.
	RedisURL string

	// SweepLeaseTTL is how long a crashed replica can hold the sweep lease.
	// A live holder renews it. Defaults to 2m.
	SweepLeaseTTL time.Duration

	// MigrateOnStart applies pending goose migrations at boot. Defaults to true.
	MigrateOnStart bool
}

// Load reads configuration from environment variables and returns a Config.
// Returns a single error listing every required variable that is not set and
// every variable whose value cannot be parsed.
func Load() (Config, error) {
	p := &parser{}
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:19006")),
		DatabaseURL:      p.required("DATABASE_URL"),
		JWTSecret:        p.required("AUTH_JWT_SECRET"),
		MaxBodyBytes:     p.positiveInt("MAX_BODY_BYTES", 1<<20),
		CleanupInterval:  time.Duration(p.positiveInt("AUTO_CLEANUP_INTERVAL_HOURS", 1)) * time.Hour,
		ExpiryWindow:     time.Duration(p.positiveInt("REQUEST_EXPIRY_HOURS", 24)) * time.Hour,
		ReopenOnWithdraw: p.boolean("REOPEN_ON_WITHDRAW", true),
		AllowSelfVote:    p.boolean("ALLOW_SELF_VOTE", false),
		RedisURL:         os.Getenv("REDIS_URL"),
		SweepLeaseTTL:    time.Duration(p.positiveInt("SWEEP_LEASE_TTL_SECONDS", 120)) * time.Second,
		MigrateOnStart:   p.boolean("MIGRATE_ON_START", true),
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		p.invalid = append(p.invalid, "LOG_LEVEL")
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parser accumulates missing and malformed variables so Load can report
// them all at once.
type parser struct {
	missing []string
	invalid []string
}

func (p *parser) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		p.missing = append(p.missing, key)
	}
	return v
}

func (p *parser) positiveInt(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) boolean(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

func (p *parser) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "required environment variables not set: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(p.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
