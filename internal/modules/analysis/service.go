package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/volregime/internal/config"
	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/internal/metrics"
	"github.com/aristath/volregime/internal/modules/backtest"
	"github.com/aristath/volregime/internal/modules/dataset"
	"github.com/aristath/volregime/internal/modules/regime"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultListLimit = 20

// Service orchestrates analysis runs. Runs are serialised: the HTTP API,
// the CLI and the scheduled refresh may all trigger one.
type Service struct {
	defaultDataset string
	defaultProfile *config.Profile

	loader  *dataset.Loader
	runner  *backtest.Runner
	repo    *Repository       // nil disables persistence
	metrics *metrics.Registry // nil disables metrics

	mu  sync.Mutex
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new analysis service
func NewService(
	defaultDataset string,
	defaultProfile *config.Profile,
	repo *Repository,
	metricsRegistry *metrics.Registry,
	log zerolog.Logger,
) *Service {
	if defaultProfile == nil {
		defaultProfile = config.DefaultProfile()
	}
	return &Service{
		defaultDataset: defaultDataset,
		defaultProfile: defaultProfile,
		loader:         dataset.NewLoader(log),
		runner:         backtest.NewRunner(log),
		repo:           repo,
		metrics:        metricsRegistry,
		now:            time.Now,
		log:            log.With().Str("service", "analysis").Logger(),
	}
}

// DefaultDataset returns the dataset used when a request names none
func (s *Service) DefaultDataset() string {
	return s.defaultDataset
}

// Run executes the full pipeline: load, standardise and fit, decode and
// label regimes, backtest against the benchmarks, then persist.
func (s *Service) Run(ctx context.Context, req Request) (result *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if s.metrics != nil {
			s.metrics.RecordRun(err)
		}
	}()

	profile, path, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	started := s.now()
	s.log.Info().Str("dataset", path).Str("profile", profile.Name).Int("states", profile.States).Msg("Starting analysis run")

	ds, err := s.load(path, profile)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signal := ds.Signal.Values
	detector, states, err := s.fit(signal, profile)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := regime.RegimeStatistics(states, signal)
	if err != nil {
		return nil, err
	}
	labels := regime.LabelByVolatility(stats)

	score, err := detector.Score(signal)
	if err != nil {
		return nil, fmt.Errorf("score model: %w", err)
	}

	timer := s.startStep("backtest")
	bt, err := s.runner.Run(states, ds.Returns, backtest.Config{
		LagDays:        profile.LagDays,
		PeriodsPerYear: profile.PeriodsPerYear,
		Instruments:    profile.Instruments,
		BuyAndHold:     profile.Benchmark,
	})
	timer.stop(err)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	modelParams, err := detector.Model().Params()
	if err != nil {
		return nil, err
	}
	scaling, err := detector.Standardizer().Params()
	if err != nil {
		return nil, err
	}

	result = &Result{
		ID:           uuid.New().String(),
		CreatedAt:    started.UTC(),
		Dataset:      path,
		Profile:      *profile,
		Start:        ds.Start(),
		End:          ds.End(),
		Observations: len(signal),
		DroppedRows:  ds.Dropped,
		Scaling:      scaling,
		Model:        modelParams,
		Score:        score,
		Regimes:      summarise(stats, labels, len(signal)),
		Backtest:     summariseBacktest(bt, labels, profile.LagDays),
		Days:         dayStates(ds.Signal.Dates, states, labels),
		Series:       seriesOf(bt),
	}
	result.Current = result.Days[len(result.Days)-1]
	result.Duration = s.now().Sub(started)

	s.record(result, labels)

	if s.repo != nil {
		timer := s.startStep("persist")
		err := s.repo.Save(ctx, result)
		timer.stop(err)
		if err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("run_id", result.ID).
		Str("current_regime", result.Current.Label).
		Bool("converged", modelParams.Converged).
		Dur("duration", result.Duration).
		Msg("Analysis run complete")

	return result, nil
}

// Compare fits every candidate state count of the profile on the dataset
// and reports AIC/BIC for each.
func (s *Service) Compare(ctx context.Context, req Request) (*regime.Comparison, error) {
	profile, path, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	ds, err := s.load(path, profile)
	if err != nil {
		return nil, err
	}

	timer := s.startStep("compare")
	cmp, err := regime.CompareModels(ctx, ds.Signal.Values, profile.CandidateStates, hmmConfig(profile), s.log)
	timer.stop(err)
	return cmp, err
}

// Get returns a stored run
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	if s.repo == nil {
		return nil, ErrRunNotFound
	}
	return s.repo.Get(ctx, id)
}

// Latest returns the most recent stored run
func (s *Service) Latest(ctx context.Context) (*Result, error) {
	if s.repo == nil {
		return nil, ErrRunNotFound
	}
	return s.repo.Latest(ctx)
}

// List returns stored runs, newest first. limit <= 0 uses a default.
func (s *Service) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.repo == nil {
		return []RunSummary{}, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, limit)
}

// States returns the per-day regimes of a stored run
func (s *Service) States(ctx context.Context, id string) ([]DayState, error) {
	if s.repo == nil {
		return nil, ErrRunNotFound
	}
	return s.repo.States(ctx, id)
}

func (s *Service) resolve(req Request) (*config.Profile, string, error) {
	profile := req.Profile
	if profile == nil {
		profile = s.defaultProfile
	}
	if err := profile.Validate(); err != nil {
		return nil, "", err
	}

	path := req.Dataset
	if path == "" {
		path = s.defaultDataset
	}
	if path == "" {
		return nil, "", fmt.Errorf("no dataset configured")
	}
	return profile, path, nil
}

func (s *Service) load(path string, profile *config.Profile) (*dataset.Dataset, error) {
	timer := s.startStep("load")
	ds, err := s.loader.LoadFile(path, dataset.Options{
		Signal:      profile.Signal,
		Instruments: profile.Columns(),
	})
	timer.stop(err)
	return ds, err
}

func (s *Service) fit(signal []float64, profile *config.Profile) (*regime.Detector, domain.StateSequence, error) {
	timer := s.startStep("fit")
	detector, err := regime.NewDetector(hmmConfig(profile), s.log)
	if err == nil {
		err = detector.Fit(signal)
	}
	timer.stop(err)
	if err != nil {
		return nil, nil, fmt.Errorf("fit regime model: %w", err)
	}

	timer = s.startStep("decode")
	states, err := detector.Predict(signal)
	timer.stop(err)
	if err != nil {
		return nil, nil, fmt.Errorf("decode regimes: %w", err)
	}
	return detector, states, nil
}

func hmmConfig(profile *config.Profile) regime.HMMConfig {
	return regime.HMMConfig{
		States:        profile.States,
		MaxIterations: profile.MaxIterations,
		Tolerance:     profile.Tolerance,
		Seed:          profile.Seed,
		MinVariance:   profile.MinVariance,
	}
}

func summarise(stats []regime.RegimeStat, labels map[int]regime.RegimeLabel, total int) []RegimeSummary {
	out := make([]RegimeSummary, 0, len(stats))
	for _, st := range stats {
		label := labels[st.State]
		out = append(out, RegimeSummary{
			State: st.State,
			Label: label.Name,
			Rank:  label.Rank,
			Mean:  st.Mean,
			Std:   st.Std,
			Days:  st.Count,
			Share: float64(st.Count) / float64(total),
		})
	}
	return out
}

func summariseBacktest(bt *backtest.Result, labels map[int]regime.RegimeLabel, lag int) BacktestSummary {
	allocations := make([]RegimeAllocation, 0, len(bt.Rules))
	for _, state := range backtest.SortedStates(bt.RegimeReturns) {
		allocations = append(allocations, RegimeAllocation{
			State:       state,
			Label:       labels[state].Name,
			Instrument:  bt.Rules[state],
			MeanReturns: bt.RegimeReturns[state],
		})
	}
	// Ordered by volatility rank rather than raw state
	sort.SliceStable(allocations, func(i, j int) bool {
		return labels[allocations[i].State].Rank < labels[allocations[j].State].Rank
	})

	return BacktestSummary{
		LagDays:     lag,
		Allocations: allocations,
		Report:      bt.Strategy.Report,
		Comparison:  bt.Comparison,
	}
}

func dayStates(dates []time.Time, states domain.StateSequence, labels map[int]regime.RegimeLabel) []DayState {
	days := make([]DayState, len(states))
	for i, state := range states {
		days[i] = DayState{Date: dates[i], State: state, Label: labels[state].Name}
	}
	return days
}

func seriesOf(bt *backtest.Result) map[string]domain.Series {
	series := make(map[string]domain.Series, len(bt.Benchmarks)+1)
	series[backtest.RegimeStrategyName] = bt.Strategy.Returns
	for name, s := range bt.Benchmarks {
		series[name] = s
	}
	return series
}

func (s *Service) record(result *Result, labels map[int]regime.RegimeLabel) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordFit(result.Model.Iterations, result.Model.Converged, result.Score.LogLikelihood)

	s.metrics.RegimeOccupancy.Reset()
	for _, r := range result.Regimes {
		s.metrics.RegimeOccupancy.WithLabelValues(r.Label).Set(float64(r.Days))
	}
	s.metrics.CurrentRegime.Set(float64(labels[result.Current.State].Rank))

	for _, row := range result.Backtest.Comparison {
		s.metrics.StrategySharpe.WithLabelValues(row.Name).Set(row.Metrics.Sharpe)
	}

	report := result.Backtest.Report
	s.metrics.ExcludedDays.WithLabelValues("no_signal").Set(float64(report.NoSignal))
	s.metrics.ExcludedDays.WithLabelValues("missing_rule").Set(float64(report.MissingRule))
	s.metrics.ExcludedDays.WithLabelValues("missing_return").Set(float64(report.MissingReturn))
}

type stepTimer struct {
	timer *metrics.StepTimer
}

func (s *Service) startStep(step string) stepTimer {
	if s.metrics == nil {
		return stepTimer{}
	}
	return stepTimer{timer: s.metrics.StartStep(step)}
}

func (t stepTimer) stop(err error) {
	if t.timer != nil {
		t.timer.Stop(err)
	}
}
