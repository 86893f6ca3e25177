// Package config loads the extractor configuration from the environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the full binary configuration.
type Config struct {
	// Involves API access.
	Username      string
	Password      string
	BaseURL       string
	EnvironmentID string

	// SinkDriver selects the destination: "sqlite", "postgres" or
	// "spreadsheet".
	SinkDriver string

	// SinkDSN is the database DSN for the sqlite and postgres drivers.
	SinkDSN string

	// OutputDir receives the xlsx files of the spreadsheet driver.
	OutputDir string

	// RedisAddr enables the Redis-backed response cache when set;
	// empty means in-memory.
	RedisAddr string

	// MetricsAddr enables the Prometheus listener when set, e.g. ":9100".
	MetricsAddr string

	LogLevel  string
	LogPretty bool
}

// Load reads the configuration from the environment. A .env file is
// honored when present but never required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Username:      os.Getenv("INVOLVES_USERNAME"),
		Password:      os.Getenv("INVOLVES_PASSWORD"),
		BaseURL:       os.Getenv("INVOLVES_BASE_URL"),
		EnvironmentID: os.Getenv("INVOLVES_ENVIRONMENT_ID"),
		SinkDriver:    getEnv("SINK_DRIVER", "sqlite"),
		SinkDSN:       getEnv("SINK_DSN", "involves.db"),
		OutputDir:     getEnv("OUTPUT_DIR", "exports"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     os.Getenv("LOG_PRETTY") == "true",
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"INVOLVES_USERNAME", c.Username},
		{"INVOLVES_PASSWORD", c.Password},
		{"INVOLVES_BASE_URL", c.BaseURL},
		{"INVOLVES_ENVIRONMENT_ID", c.EnvironmentID},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required environment variable %s", r.name)
		}
	}

	switch c.SinkDriver {
	case "sqlite", "postgres", "spreadsheet":
	default:
		return fmt.Errorf("unsupported SINK_DRIVER %q", c.SinkDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
