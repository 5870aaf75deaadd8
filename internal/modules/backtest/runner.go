package backtest

import (
	"fmt"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/internal/modules/performance"
	"github.com/rs/zerolog"
)

// Strategy names used in the comparison table.
const (
	RegimeStrategyName = "Regime Strategy"
	EqualWeightName    = "Equal Weight"
	buyAndHoldPrefix   = "Buy & Hold "
)

// BuyAndHoldName returns the comparison-table name of a buy-and-hold benchmark.
func BuyAndHoldName(instrument string) string {
	return buyAndHoldPrefix + instrument
}

// Config controls a full backtest run.
type Config struct {
	LagDays        int
	PeriodsPerYear int
	// Instruments is the candidate list in priority order. Empty means
	// every instrument of the return table in declared order.
	Instruments []string
	// BuyAndHold is the buy-and-hold benchmark instrument.
	BuyAndHold string
}

// StrategyPerformance is one row of the comparison table.
type StrategyPerformance struct {
	Name    string                    `json:"name"`
	Metrics domain.PerformanceMetrics `json:"metrics"`
}

// Result holds everything a full backtest produces.
type Result struct {
	RegimeReturns map[int]map[string]float64 `json:"regime_returns"`
	Rules         domain.AllocationRules     `json:"rules"`
	Strategy      *Simulation                `json:"strategy"`
	Benchmarks    map[string]domain.Series   `json:"benchmarks"`
	Comparison    []StrategyPerformance      `json:"comparison"`
}

// Runner executes the regime-following backtest against its benchmarks.
type Runner struct {
	log zerolog.Logger
}

// NewRunner creates a backtest runner
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		log: log.With().Str("component", "backtest").Logger(),
	}
}

// Run builds allocation rules from in-sample regime returns, simulates the
// lagged strategy and evaluates it next to the equal-weight and
// buy-and-hold benchmarks.
func (r *Runner) Run(states domain.StateSequence, table *domain.ReturnTable, cfg Config) (*Result, error) {
	instruments := cfg.Instruments
	if len(instruments) == 0 {
		instruments = table.Instruments
	}
	for _, inst := range instruments {
		if _, err := table.Column(inst); err != nil {
			return nil, err
		}
	}

	universe, err := r.subTable(table, instruments)
	if err != nil {
		return nil, err
	}

	means, err := RegimeMeanReturns(states, universe)
	if err != nil {
		return nil, fmt.Errorf("regime performance: %w", err)
	}

	rules := BestInstrumentPerRegime(means, instruments)
	for _, state := range SortedStates(rules) {
		r.log.Info().Int("state", state).Str("instrument", rules[state]).Msg("Allocation rule")
	}

	signal, err := ApplyLag(states, cfg.LagDays)
	if err != nil {
		return nil, err
	}

	sim, err := Simulate(signal, rules, universe)
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Int("resolved", sim.Report.Resolved).
		Int("no_signal", sim.Report.NoSignal).
		Int("missing_rule", sim.Report.MissingRule).
		Int("missing_return", sim.Report.MissingReturn).
		Msg("Strategy simulated")

	benchmarks := make(map[string]domain.Series, 2)
	order := []string{RegimeStrategyName}

	ew, err := EqualWeight(universe, instruments)
	if err != nil {
		return nil, err
	}
	benchmarks[EqualWeightName] = ew
	order = append(order, EqualWeightName)

	if cfg.BuyAndHold != "" {
		bh, err := BuyAndHold(table, cfg.BuyAndHold)
		if err != nil {
			return nil, err
		}
		name := BuyAndHoldName(cfg.BuyAndHold)
		benchmarks[name] = bh
		order = append(order, name)
	}

	comparison := make([]StrategyPerformance, 0, len(order))
	for _, name := range order {
		series := sim.Returns
		if name != RegimeStrategyName {
			series = benchmarks[name]
		}
		metrics, err := performance.EvaluateSeries(series, cfg.PeriodsPerYear)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", name, err)
		}
		comparison = append(comparison, StrategyPerformance{Name: name, Metrics: metrics})
	}

	return &Result{
		RegimeReturns: means,
		Rules:         rules,
		Strategy:      sim,
		Benchmarks:    benchmarks,
		Comparison:    comparison,
	}, nil
}

func (r *Runner) subTable(table *domain.ReturnTable, instruments []string) (*domain.ReturnTable, error) {
	sub := domain.NewReturnTable(table.Dates)
	for _, inst := range instruments {
		col, err := table.Column(inst)
		if err != nil {
			return nil, err
		}
		if err := sub.AddInstrument(inst, col); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
