package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/volregime/internal/config"
	"github.com/aristath/volregime/internal/database"
	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/modules/report"
)

// analyzeCmd runs the full pipeline once and prints the report
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fit regimes on a dataset and backtest the regime strategy",
	Long: `Load the dataset, fit the regime model on the volatility signal, derive
the per-regime allocation rules and compare the regime strategy against the
equal-weight and buy-and-hold benchmarks.

Examples:
  volregime analyze --dataset data/market_data.csv
  volregime analyze --states 4 --lag 2 --format json
  volregime analyze --summary-csv summary.csv --series-csv series.csv --save`,
	RunE: runAnalyze,
}

var (
	analyzeDataset   string
	analyzeProfile   string
	analyzeStates    int
	analyzeLag       int
	analyzeFormat    string
	analyzePlain     bool
	analyzeSummary   string
	analyzeSeriesCSV string
	analyzeSave      bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeDataset, "dataset", "", "CSV dataset (default VOLREGIME_DATASET)")
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "", "YAML analysis profile (default VOLREGIME_PROFILE)")
	analyzeCmd.Flags().IntVar(&analyzeStates, "states", 0, "Override the number of hidden states")
	analyzeCmd.Flags().IntVar(&analyzeLag, "lag", -1, "Override the signal lag in days")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "Output format (table|json)")
	analyzeCmd.Flags().BoolVar(&analyzePlain, "plain", false, "Render tables without colour")
	analyzeCmd.Flags().StringVar(&analyzeSummary, "summary-csv", "", "Write the strategy comparison to this CSV file")
	analyzeCmd.Flags().StringVar(&analyzeSeriesCSV, "series-csv", "", "Write wealth and drawdown series to this CSV file")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist the run to the analysis database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "table" && analyzeFormat != "json" {
		return fmt.Errorf("invalid format %q", analyzeFormat)
	}

	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	profile, err := resolveProfile(cfg, analyzeProfile)
	if err != nil {
		return err
	}
	if err := applyOverrides(profile, analyzeStates, analyzeLag); err != nil {
		return err
	}

	var repo *analysis.Repository
	if analyzeSave {
		db, err := database.New(database.Config{Path: cfg.DatabasePath(), Profile: database.ProfileStandard, Name: "analysis"})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		repo = analysis.NewRepository(db.Conn(), log)
	}

	service := analysis.NewService(cfg.Dataset, profile, repo, nil, log)
	result, err := service.Run(cmd.Context(), analysis.Request{Dataset: analyzeDataset})
	if err != nil {
		return err
	}

	if analyzeSummary != "" {
		if err := writeFile(analyzeSummary, func(f *os.File) error {
			return report.WriteComparisonCSV(f, result.Backtest.Comparison)
		}); err != nil {
			return err
		}
		log.Info().Str("path", analyzeSummary).Msg("Comparison written")
	}
	if analyzeSeriesCSV != "" {
		if err := writeFile(analyzeSeriesCSV, func(f *os.File) error {
			return report.WriteSeriesCSV(f, result.Series)
		}); err != nil {
			return err
		}
		log.Info().Str("path", analyzeSeriesCSV).Msg("Series written")
	}

	out := cmd.OutOrStdout()
	if analyzeFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return report.NewRenderer(styleFor(analyzePlain)).Run(out, result)
}

// applyOverrides applies command line overrides and revalidates the profile.
func applyOverrides(profile *config.Profile, states, lag int) error {
	if states > 0 {
		profile.States = states
	}
	if lag >= 0 {
		profile.LagDays = lag
	}
	return profile.Validate()
}

func styleFor(plain bool) report.Style {
	if plain {
		return report.PlainStyle()
	}
	return report.DefaultStyle()
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
