package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds every runtime setting for the service.
type AppConfig struct {
	Port string

	// Outbound provider endpoints.
	GeocodingBaseURL string
	ForecastBaseURL  string
	HTTPTimeout      time.Duration

	// Search behaviour.
	SuggestDebounce time.Duration // quiet period before a suggestion fetch
	SuggestLimit    int           // max autocomplete candidates per query
	RecentLimit     int           // max recent searches kept per session

	// Session retention.
	SessionMax int
	SessionTTL time.Duration

	// RefreshInterval controls the background forecast refresh (0 = off).
	RefreshInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GeocodingBaseURL = getenvDefault("GEOCODING_BASE_URL", "https://geocoding-api.open-meteo.com/v1/search")
	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1/forecast")

	httpTimeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = httpTimeout

	debounce, err := getenvDuration("SUGGEST_DEBOUNCE", "300ms")
	if err != nil {
		return nil, fmt.Errorf("invalid SUGGEST_DEBOUNCE: %w", err)
	}
	cfg.SuggestDebounce = debounce

	cfg.SuggestLimit = getenvInt("SUGGEST_LIMIT", 5)
	cfg.RecentLimit = getenvInt("RECENT_LIMIT", 5)
	cfg.SessionMax = getenvInt("SESSION_MAX", 1000)

	sessionTTL, err := getenvDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL

	refreshInterval, err := getenvDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refreshInterval

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
