// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	DBDriver string // "sqlite" (pure Go) or "sqlite3" (cgo)
	LogLevel string
	Port     int
	DevMode  bool

	RiskFreeRate    float64 // Annual rate as a fraction (0.02 = 2%)
	BenchmarkTicker string
	MinObservations int
	CorrelatedRisk  bool // covariance form of portfolio volatility
	RiskWorkers     int  // per-ticker fan-out; 0 means one per CPU

	AlphaVantageAPIKey         string
	AlphaVantageCallsPerMinute int
	FetchConcurrency           int
	LiveQuotes                 bool // refresh holdings from GLOBAL_QUOTE; one extra call per ticker

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// cron specs with a seconds field
	RefreshSchedule     string
	MetadataSchedule    string
	MaintenanceSchedule string
	CacheTTL            time.Duration
}

// Load reads configuration from environment variables, after loading a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	absDataDir, err := filepath.Abs(getEnv("ANALYTICS_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.02),
		BenchmarkTicker: strings.ToUpper(getEnv("BENCHMARK_TICKER", "SPY")),
		MinObservations: getEnvAsInt("MIN_OBSERVATIONS", 30),
		CorrelatedRisk:  getEnvAsBool("RISK_CORRELATED", false),
		RiskWorkers:     getEnvAsInt("RISK_WORKERS", 0),

		AlphaVantageAPIKey:         getEnv("ALPHAVANTAGE_API_KEY", ""),
		AlphaVantageCallsPerMinute: getEnvAsInt("ALPHAVANTAGE_CALLS_PER_MINUTE", 5),
		FetchConcurrency:           getEnvAsInt("FETCH_CONCURRENCY", 4),
		LiveQuotes:                 getEnvAsBool("REFRESH_LIVE_QUOTES", false),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		RefreshSchedule:     getEnv("REFRESH_SCHEDULE", "0 30 22 * * MON-FRI"),
		MetadataSchedule:    getEnv("METADATA_SCHEDULE", "0 0 6 * * *"),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
		CacheTTL:            time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// DatabasePath returns the file path for a named database inside DataDir.
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "sqlite3" {
		return fmt.Errorf("invalid DB_DRIVER %q (want sqlite or sqlite3)", c.DBDriver)
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("RISK_FREE_RATE must be a fraction in [0, 1], got %v", c.RiskFreeRate)
	}
	if c.MinObservations < 2 {
		return fmt.Errorf("MIN_OBSERVATIONS must be at least 2, got %d", c.MinObservations)
	}
	if c.AlphaVantageCallsPerMinute <= 0 {
		return fmt.Errorf("ALPHAVANTAGE_CALLS_PER_MINUTE must be positive, got %d", c.AlphaVantageCallsPerMinute)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must not be negative")
	}
	if c.RiskWorkers < 0 {
		return fmt.Errorf("RISK_WORKERS must not be negative, got %d", c.RiskWorkers)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"REFRESH_SCHEDULE":     c.RefreshSchedule,
		"METADATA_SCHEDULE":    c.MetadataSchedule,
		"MAINTENANCE_SCHEDULE": c.MaintenanceSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
