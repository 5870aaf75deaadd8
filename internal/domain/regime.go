package domain

// NoSignal marks a day without a resolved (lagged) regime signal.
const NoSignal = -1

// StateSequence holds one raw model state label in [0,K) per day.
// Labels are arbitrary model indices; use regime labels for meaning.
type StateSequence []int

// LaggedSignal holds the state executed on each day after the lag.
// Unresolved days carry NoSignal.
type LaggedSignal []int

// AllocationRules maps a state label to the instrument held in that state.
type AllocationRules map[int]string

// PerformanceMetrics is the fixed-shape summary of one return series.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Observations     int     `json:"observations"`
}
