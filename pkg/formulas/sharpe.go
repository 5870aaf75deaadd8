package formulas

import "math"

// volatilityEpsilon treats rounding noise from a constant series as zero
// volatility.
const volatilityEpsilon = 1e-12

// SharpeRatio divides an annualised return by annualised volatility with a
// zero risk-free rate. A flat series (no measurable volatility) scores
// exactly 0.
func SharpeRatio(annualReturn, annualVolatility float64) float64 {
	if annualVolatility < volatilityEpsilon || math.IsNaN(annualVolatility) {
		return 0
	}
	return annualReturn / annualVolatility
}

// DownsideVolatility is the annualised sample standard deviation of the
// negative returns only. With fewer than two losing periods it is 0.
func DownsideVolatility(returns []float64, periodsPerYear int) float64 {
	return AnnualizedVolatility(Negatives(returns), periodsPerYear)
}

// SortinoRatio divides an annualised return by downside volatility.
// Same zero guard as SharpeRatio when there is no measurable downside.
func SortinoRatio(annualReturn float64, returns []float64, periodsPerYear int) float64 {
	downside := DownsideVolatility(returns, periodsPerYear)
	if downside < volatilityEpsilon || math.IsNaN(downside) {
		return 0
	}
	return annualReturn / downside
}
