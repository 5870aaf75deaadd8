// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	databaseFile   = "volregime.db"
	defaultDataset = "market_data.csv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for the database and datasets (always absolute)
	Dataset         string // CSV dataset analysed by default and by scheduled refreshes
	ProfilePath     string // Optional YAML analysis profile; empty uses DefaultProfile
	RefreshSchedule string // Cron expression for scheduled re-analysis; empty disables it
	RetainRuns      int    // Stored runs kept by the weekly maintenance; 0 keeps all
	LogLevel        string
	Port            int
	DevMode         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("VOLREGIME_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Dataset:         getEnv("VOLREGIME_DATASET", filepath.Join(absDataDir, defaultDataset)),
		ProfilePath:     getEnv("VOLREGIME_PROFILE", ""),
		RefreshSchedule: getEnv("VOLREGIME_REFRESH_SCHEDULE", ""),
		RetainRuns:      getEnvAsInt("VOLREGIME_RETAIN_RUNS", 200),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("GO_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the SQLite file holding analysis runs
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, databaseFile)
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RetainRuns < 0 {
		return fmt.Errorf("invalid run retention %d", c.RetainRuns)
	}
	if c.Dataset == "" {
		return fmt.Errorf("dataset path is required")
	}
	return nil
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
