package navigation

import (
	"os"
	"strconv"
	"time"
)

// Config holds live navigation configuration
type Config struct {
	Throttle         time.Duration // minimum gap between route recomputes
	FixTimeout       time.Duration // one-shot position fix deadline
	UpdateInterval   time.Duration // subscription minimum interval
	MinDisplacementM float64       // subscription minimum displacement
	SessionIdleTTL   time.Duration // sessions without Push/Get for this long are closed, 0 disables
}

// DefaultConfig returns the values used when no environment is set
func DefaultConfig() *Config {
	return &Config{
		Throttle:         15 * time.Second,
		FixTimeout:       10 * time.Second,
		UpdateInterval:   5 * time.Second,
		MinDisplacementM: 10,
		SessionIdleTTL:   30 * time.Minute,
	}
}

// LoadConfigFromEnv loads navigation configuration from environment variables
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if d, err := time.ParseDuration(getEnv("NAV_THROTTLE", "15s")); err == nil && d >= 0 {
		cfg.Throttle = d
	}
	if d, err := time.ParseDuration(getEnv("NAV_FIX_TIMEOUT", "10s")); err == nil && d > 0 {
		cfg.FixTimeout = d
	}
	if d, err := time.ParseDuration(getEnv("NAV_UPDATE_INTERVAL", "5s")); err == nil && d >= 0 {
		cfg.UpdateInterval = d
	}
	if m, err := strconv.ParseFloat(getEnv("NAV_MIN_DISPLACEMENT_M", "10"), 64); err == nil && m >= 0 {
		cfg.MinDisplacementM = m
	}
	if d, err := time.ParseDuration(getEnv("NAV_SESSION_IDLE_TTL", "30m")); err == nil && d >= 0 {
		cfg.SessionIdleTTL = d
	}

	return cfg
}

// subscribeOptions derives the position feed settings from the config
func (c *Config) subscribeOptions() SubscribeOptions {
	return SubscribeOptions{
		HighAccuracy:     true,
		MinInterval:      c.UpdateInterval,
		MinDisplacementM: c.MinDisplacementM,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
