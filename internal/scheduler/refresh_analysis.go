package scheduler

import (
	"context"
	"time"

	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/rs/zerolog"
)

// AnalysisRunner is the part of analysis.Service the refresh job needs
type AnalysisRunner interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// RefreshAnalysisJob re-runs the default analysis so the stored latest run
// follows the dataset as it is updated.
type RefreshAnalysisJob struct {
	runner  AnalysisRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshAnalysisJob creates a new RefreshAnalysisJob
func NewRefreshAnalysisJob(runner AnalysisRunner, timeout time.Duration, log zerolog.Logger) *RefreshAnalysisJob {
	return &RefreshAnalysisJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "refresh_analysis").Logger(),
	}
}

// Name returns the job name
func (j *RefreshAnalysisJob) Name() string {
	return "refresh_analysis"
}

// Run executes the refresh
func (j *RefreshAnalysisJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result, err := j.runner.Run(ctx, analysis.Request{})
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", result.ID).
		Str("current_regime", result.Current.Label).
		Msg("Analysis refreshed")
	return nil
}
