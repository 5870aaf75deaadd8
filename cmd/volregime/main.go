// Package main is the volregime command line: it fits volatility regimes on
// a market dataset, backtests the regime-switching allocation and serves the
// results over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/volregime/internal/config"
	"github.com/aristath/volregime/pkg/logger"
)

var (
	logLevel  string
	logPretty bool
)

// rootCmd is the base command for the volregime CLI
var rootCmd = &cobra.Command{
	Use:   "volregime",
	Short: "Volatility regime detection and regime-switching backtests",
	Long: `volregime fits a Gaussian hidden Markov model to daily changes of a
volatility index, labels the hidden states by volatility and backtests a
strategy that holds the best instrument for each regime.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", true, "Human readable log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvironment reads the environment configuration and builds the logger.
func loadEnvironment() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: logPretty})
		return nil, fallbackLog, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: logPretty})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

// resolveProfile loads the profile named by the flag, falling back to the
// configured profile path and then to the built-in defaults.
func resolveProfile(cfg *config.Config, path string) (*config.Profile, error) {
	if path == "" {
		path = cfg.ProfilePath
	}
	profile, err := config.LoadProfile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}
