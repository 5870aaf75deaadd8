// Package formulas holds the return-series arithmetic shared by the
// performance evaluator, the benchmark builder and the dataset loader.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the default annualisation factor for daily data.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator).
// Fewer than two observations have no defined deviation and yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from periodic returns
// Formula: Sample Std Dev of Returns × sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// CumulativeReturn compounds a return series: (1+r1)*(1+r2)*...*(1+rN) - 1
func CumulativeReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// CalculateAnnualReturn calculates the compound annual growth rate of a
// periodic return series.
//
// Formula: (1 + cumulative)^(periodsPerYear/N) - 1
//
// Unlike the CAGR helpers used for scoring, short series are annualised
// as-is; callers decide whether a handful of days is meaningful.
func CalculateAnnualReturn(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := CumulativeReturn(returns)
	years := float64(len(returns)) / float64(periodsPerYear)

	return math.Pow(1+cumulative, 1/years) - 1
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// CalculateLogReturns converts prices to log returns ln(P[i]/P[i-1]).
// Non-positive prices produce NaN so callers can drop the affected day.
func CalculateLogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			returns[i-1] = math.NaN()
			continue
		}
		returns[i-1] = math.Log(prices[i] / prices[i-1])
	}

	return returns
}

// Differences returns the first difference of a series: X[i] - X[i-1].
func Differences(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	diffs := make([]float64, len(values)-1)
	floats.SubTo(diffs, values[1:], values[:len(values)-1])
	return diffs
}

// Negatives returns the strictly negative entries of a series, in order.
func Negatives(returns []float64) []float64 {
	out := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			out = append(out, r)
		}
	}
	return out
}
