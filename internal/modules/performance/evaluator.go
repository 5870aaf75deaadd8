// Package performance scores return series with the standard risk/return
// metrics used to compare the regime strategy against its benchmarks.
package performance

import (
	"fmt"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/pkg/formulas"
)

// DefaultPeriodsPerYear annualises daily returns.
const DefaultPeriodsPerYear = formulas.TradingDaysPerYear

// Evaluate computes PerformanceMetrics for one return series.
// periodsPerYear <= 0 falls back to DefaultPeriodsPerYear.
func Evaluate(returns []float64, periodsPerYear int) (domain.PerformanceMetrics, error) {
	if len(returns) == 0 {
		return domain.PerformanceMetrics{}, fmt.Errorf("evaluate: %w", domain.ErrEmptySeries)
	}
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}

	annualReturn := formulas.CalculateAnnualReturn(returns, periodsPerYear)
	annualVol := formulas.AnnualizedVolatility(returns, periodsPerYear)

	return domain.PerformanceMetrics{
		TotalReturn:      formulas.CumulativeReturn(returns),
		AnnualReturn:     annualReturn,
		AnnualVolatility: annualVol,
		Sharpe:           formulas.SharpeRatio(annualReturn, annualVol),
		Sortino:          formulas.SortinoRatio(annualReturn, returns, periodsPerYear),
		MaxDrawdown:      formulas.MaxDrawdown(returns),
		Observations:     len(returns),
	}, nil
}

// EvaluateSeries is Evaluate on a day-indexed series.
func EvaluateSeries(s domain.Series, periodsPerYear int) (domain.PerformanceMetrics, error) {
	return Evaluate(s.Values, periodsPerYear)
}

// Wealth returns the cumulative wealth curve (growth of 1) of a series,
// on the same day index, for external plotting.
func Wealth(s domain.Series) domain.Series {
	return domain.Series{Dates: s.Dates, Values: formulas.WealthCurve(s.Values)}
}

// Drawdowns returns the running drawdown of a series on the same index.
func Drawdowns(s domain.Series) domain.Series {
	return domain.Series{Dates: s.Dates, Values: formulas.DrawdownSeries(s.Values)}
}
