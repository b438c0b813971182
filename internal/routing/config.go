package routing

import (
	"os"
	"strconv"
	"time"
)

// Config holds path-finding configuration
type Config struct {
	BaseURL      string
	Profile      string
	Timeout      time.Duration
	DetourFactor float64
	MaxLegs      int // concurrent legs in a tour fan-out, 0 means unbounded
}

// DefaultConfig returns the values used when no environment is set
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://router.project-osrm.org",
		Profile:      "foot",
		Timeout:      10 * time.Second,
		DetourFactor: 2,
		MaxLegs:      8,
	}
}

// LoadConfigFromEnv loads path-finding configuration from environment variables
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.BaseURL = getEnv("OSRM_BASE_URL", cfg.BaseURL)
	cfg.Profile = getEnv("OSRM_PROFILE", cfg.Profile)

	if d, err := time.ParseDuration(getEnv("ROUTE_TIMEOUT", "10s")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if f, err := strconv.ParseFloat(getEnv("DETOUR_FACTOR", "2"), 64); err == nil && f >= 1 {
		cfg.DetourFactor = f
	}
	if n, err := strconv.Atoi(getEnv("ROUTE_MAX_LEGS", "8")); err == nil && n >= 0 {
		cfg.MaxLegs = n
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
