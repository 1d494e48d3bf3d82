// Package config loads and validates application configuration from
// environment variables. A .env file in the working directory is merged
// first when present, so local development needs no exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the tap logger daemon.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP API listens on. Defaults to "8080".
	Port string

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Defaults to ":9091". Empty disables the metrics server.
	MetricsAddr string

	// DBPath is the filesystem path of the local SQLite store.
	// Defaults to "taplog.db" in the working directory.
	DBPath string

	// RemoteURL is the base URL of the remote log store. Required.
	RemoteURL string

	// StationsPath is the path of the station reference CSV. Required.
	StationsPath string

	// ProbeInterval is how often the connectivity prober checks whether
	// the remote store is reachable. Defaults to 30s.
	ProbeInterval time.Duration

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string
}

// Load reads configuration from the environment (after merging an optional
// .env file) and returns a Config. Returns an error listing any required
// variables that are not set.
func Load() (Config, error) {
	// A missing .env is fine; exported variables still apply.
	_ = godotenv.Load()

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		MetricsAddr:  getEnv("METRICS_ADDR", ":9091"),
		DBPath:       getEnv("DB_PATH", "taplog.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StationsPath: os.Getenv("STATIONS_CSV"),
		RemoteURL:    os.Getenv("REMOTE_URL"),
	}

	if v := os.Getenv("PROBE_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return Config{}, fmt.Errorf("invalid PROBE_INTERVAL_SEC: %q", v)
		}
		cfg.ProbeInterval = time.Duration(sec) * time.Second
	} else {
		cfg.ProbeInterval = 30 * time.Second
	}

	var missing []string
	if cfg.RemoteURL == "" {
		missing = append(missing, "REMOTE_URL")
	}
	if cfg.StationsPath == "" {
		missing = append(missing, "STATIONS_CSV")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
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
