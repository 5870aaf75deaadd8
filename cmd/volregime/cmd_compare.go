package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/modules/report"
)

// compareCmd scores models with different state counts
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare regime models by AIC and BIC",
	Long: `Fit one model per candidate state count on the same signal and report
log-likelihood, AIC and BIC for each.

Examples:
  volregime compare
  volregime compare --candidates 2,3,4,5,6 --format json`,
	RunE: runCompare,
}

var (
	compareDataset    string
	compareProfile    string
	compareCandidates string
	compareFormat     string
	comparePlain      bool
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareDataset, "dataset", "", "CSV dataset (default VOLREGIME_DATASET)")
	compareCmd.Flags().StringVar(&compareProfile, "profile", "", "YAML analysis profile (default VOLREGIME_PROFILE)")
	compareCmd.Flags().StringVar(&compareCandidates, "candidates", "", "Comma separated state counts (default from profile)")
	compareCmd.Flags().StringVar(&compareFormat, "format", "table", "Output format (table|json)")
	compareCmd.Flags().BoolVar(&comparePlain, "plain", false, "Render tables without colour")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if compareFormat != "table" && compareFormat != "json" {
		return fmt.Errorf("invalid format %q", compareFormat)
	}

	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	profile, err := resolveProfile(cfg, compareProfile)
	if err != nil {
		return err
	}
	if compareCandidates != "" {
		candidates, err := parseCandidates(compareCandidates)
		if err != nil {
			return err
		}
		profile.CandidateStates = candidates
		if err := profile.Validate(); err != nil {
			return err
		}
	}

	service := analysis.NewService(cfg.Dataset, profile, nil, nil, log)
	cmp, err := service.Compare(cmd.Context(), analysis.Request{Dataset: compareDataset})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if compareFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cmp)
	}
	_, err = fmt.Fprintln(out, report.NewRenderer(styleFor(comparePlain)).ModelComparisonTable(cmp))
	return err
}

func parseCandidates(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		k, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid state count %q: %w", p, err)
		}
		out = append(out, k)
	}
	return out, nil
}
