package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "SORTCHECK_"

// Config holds all configuration for the sortable verifier.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Files
	ListPath     string
	ResultsPath  string
	ProgressPath string // empty disables the progress file

	// Adaptive batching
	InitialWorkers      int
	MaxWorkers          int
	BatchSize           int
	ErrorRateLow        float64
	ErrorRateHigh       float64
	CheckpointEachBatch bool

	// Attributes service
	AttributesURL      string
	FC                 string
	SessionCookie      string
	HTTPTimeout        time.Duration
	InsecureSkipVerify bool

	// Timestamps in the list file are local to this zone
	Timezone string
	Location *time.Location

	// Optional sinks; empty disables them
	DatabaseURL     string
	RedpandaBrokers string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ListPath:     getEnv("LIST_PATH", "Asins_lista.csv"),
		ResultsPath:  getEnv("RESULTS_PATH", "Sortable_Results.csv"),
		ProgressPath: getEnv("PROGRESS_PATH", ""),

		InitialWorkers:      getEnvInt("INITIAL_WORKERS", 5),
		MaxWorkers:          getEnvInt("MAX_WORKERS", 50),
		BatchSize:           getEnvInt("BATCH_SIZE", 20),
		ErrorRateLow:        getEnvFloat("ERROR_RATE_LOW", 0.05),
		ErrorRateHigh:       getEnvFloat("ERROR_RATE_HIGH", 0.10),
		CheckpointEachBatch: getEnvBool("CHECKPOINT_EACH_BATCH", false),

		AttributesURL:      getEnv("ATTRIBUTES_URL", ""),
		FC:                 getEnv("FC", "VLC1"),
		SessionCookie:      getEnv("SESSION_COOKIE", ""),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		InsecureSkipVerify: getEnvBool("INSECURE_SKIP_VERIFY", false),

		Timezone: getEnv("TIMEZONE", "Local"),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedpandaBrokers: getEnv("REDPANDA_BROKERS", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SORTCHECK_TIMEZONE is invalid: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

// Brokers splits RedpandaBrokers on commas.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.RedpandaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.AttributesURL == "" {
		return fmt.Errorf("SORTCHECK_ATTRIBUTES_URL is required")
	}
	if c.ListPath == "" {
		return fmt.Errorf("SORTCHECK_LIST_PATH is required")
	}
	if c.ResultsPath == "" {
		return fmt.Errorf("SORTCHECK_RESULTS_PATH is required")
	}
	if c.ErrorRateLow < 0 || c.ErrorRateHigh > 1 || c.ErrorRateLow > c.ErrorRateHigh {
		return fmt.Errorf("SORTCHECK_ERROR_RATE_LOW/HIGH must satisfy 0 <= low <= high <= 1")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SORTCHECK_HTTP_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(envPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
