package regime

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Comparison is the outcome of fitting several state counts on one series.
type Comparison struct {
	Scores    []ModelScore `json:"scores"`
	BestByAIC int          `json:"best_by_aic"`
	BestByBIC int          `json:"best_by_bic"`
}

// CompareModels fits one detector per candidate state count and scores
// each on the same observations. Candidates are independent and fitted
// concurrently; results are ordered by state count.
func CompareModels(ctx context.Context, observations []float64, candidates []int, base HMMConfig, log zerolog.Logger) (*Comparison, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate state counts")
	}

	scores := make([]ModelScore, len(candidates))
	g, ctx := errgroup.WithContext(ctx)

	for i, k := range candidates {
		i, k := i, k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			cfg := base
			cfg.States = k
			detector, err := NewDetector(cfg, log)
			if err != nil {
				return err
			}
			if err := detector.Fit(observations); err != nil {
				return fmt.Errorf("fit %d-state model: %w", k, err)
			}
			score, err := detector.Score(observations)
			if err != nil {
				return fmt.Errorf("score %d-state model: %w", k, err)
			}
			scores[i] = score
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].States < scores[j].States })

	best := &Comparison{Scores: scores, BestByAIC: scores[0].States, BestByBIC: scores[0].States}
	bestAIC, bestBIC := scores[0].AIC, scores[0].BIC
	for _, s := range scores[1:] {
		if s.AIC < bestAIC {
			bestAIC, best.BestByAIC = s.AIC, s.States
		}
		if s.BIC < bestBIC {
			bestBIC, best.BestByBIC = s.BIC, s.States
		}
	}

	log.Info().
		Ints("candidates", candidates).
		Int("best_by_aic", best.BestByAIC).
		Int("best_by_bic", best.BestByBIC).
		Msg("Model comparison complete")

	return best, nil
}
