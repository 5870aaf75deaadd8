// Package analysis runs the volatility-regime study end to end: it loads a
// dataset, fits and labels the regime model, backtests the regime-following
// allocation and persists each run.
package analysis

import (
	"errors"
	"time"

	"github.com/aristath/volregime/internal/config"
	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/internal/modules/backtest"
	"github.com/aristath/volregime/internal/modules/regime"
)

// ErrRunNotFound is returned when no stored run matches the request.
var ErrRunNotFound = errors.New("analysis run not found")

// Request describes one analysis run. Zero fields fall back to the
// service defaults.
type Request struct {
	Dataset string          `json:"dataset,omitempty"`
	Profile *config.Profile `json:"profile,omitempty"`
}

// RegimeSummary describes one decoded regime.
type RegimeSummary struct {
	State int     `json:"state"`
	Label string  `json:"label"`
	Rank  int     `json:"rank"`
	Mean  float64 `json:"mean"` // mean signal change in the regime
	Std   float64 `json:"std"`
	Days  int     `json:"days"`
	Share float64 `json:"share"` // fraction of all days
}

// RegimeAllocation is the instrument chosen for one regime together with
// every instrument's mean daily return in it.
type RegimeAllocation struct {
	State       int                `json:"state"`
	Label       string             `json:"label"`
	Instrument  string             `json:"instrument"`
	MeanReturns map[string]float64 `json:"mean_returns"`
}

// DayState is the decoded regime of one trading day.
type DayState struct {
	Date  time.Time `json:"date"`
	State int       `json:"state"`
	Label string    `json:"label"`
}

// BacktestSummary is the compact outcome of the regime-following backtest.
type BacktestSummary struct {
	LagDays     int                            `json:"lag_days"`
	Allocations []RegimeAllocation             `json:"allocations"`
	Report      backtest.SimulationReport      `json:"report"`
	Comparison  []backtest.StrategyPerformance `json:"comparison"`
}

// Result is a complete analysis run.
type Result struct {
	ID           string                       `json:"id"`
	CreatedAt    time.Time                    `json:"created_at"`
	Dataset      string                       `json:"dataset"`
	Profile      config.Profile               `json:"profile"`
	Start        time.Time                    `json:"start"`
	End          time.Time                    `json:"end"`
	Observations int                          `json:"observations"`
	DroppedRows  int                          `json:"dropped_rows"`
	Scaling      regime.StandardizationParams `json:"scaling"`
	Model        regime.Params                `json:"model"`
	Score        regime.ModelScore            `json:"score"`
	Regimes      []RegimeSummary              `json:"regimes"` // ordered by volatility rank
	Current      DayState                     `json:"current"`
	Backtest     BacktestSummary              `json:"backtest"`
	Duration     time.Duration                `json:"duration_ns"`

	// Days is persisted separately and served on its own endpoint.
	Days []DayState `json:"-"`

	// Strategy and benchmark return series, kept for reports; not persisted.
	Series map[string]domain.Series `json:"-"`
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Dataset       string    `json:"dataset"`
	ProfileName   string    `json:"profile_name"`
	States        int       `json:"states"`
	Converged     bool      `json:"converged"`
	Iterations    int       `json:"iterations"`
	LogLikelihood float64   `json:"log_likelihood"`
	Observations  int       `json:"observations"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	DurationMS    int64     `json:"duration_ms"`
}
