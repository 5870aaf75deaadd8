package performance

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/volregime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_EmptySeries(t *testing.T) {
	_, err := Evaluate(nil, 252)
	assert.ErrorIs(t, err, domain.ErrEmptySeries)
}

func TestEvaluate_ConstantSeriesHasZeroRatios(t *testing.T) {
	returns := []float64{0.001, 0.001, 0.001, 0.001, 0.001}

	m, err := Evaluate(returns, 252)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.Sortino)
	assert.InDelta(t, 0.0, m.AnnualVolatility, 1e-15)
	assert.False(t, math.IsNaN(m.Sharpe) || math.IsNaN(m.Sortino))
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestEvaluate_AllZeroSeries(t *testing.T) {
	m, err := Evaluate([]float64{0, 0, 0}, 252)
	require.NoError(t, err)
	assert.Equal(t, domain.PerformanceMetrics{Observations: 3}, m)
}

func TestEvaluate_AlternatingReturns(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}

	m, err := Evaluate(returns, 252)
	require.NoError(t, err)

	cumulative := (1.01)*(0.99)*(1.02)*(0.98) - 1
	assert.InDelta(t, cumulative, m.TotalReturn, 1e-15)
	assert.InDelta(t, math.Pow(1+cumulative, 252.0/4)-1, m.AnnualReturn, 1e-12)
	assert.LessOrEqual(t, m.MaxDrawdown, 0.0)
	assert.InDelta(t, -0.02, m.MaxDrawdown, 1e-12)
	assert.Equal(t, 4, m.Observations)

	// sample std of {0.01,-0.01,0.02,-0.02} = sqrt(0.001/3)
	vol := math.Sqrt(0.001/3) * math.Sqrt(252)
	assert.InDelta(t, vol, m.AnnualVolatility, 1e-12)
	assert.InDelta(t, m.AnnualReturn/vol, m.Sharpe, 1e-12)

	// downside: {-0.01,-0.02}, sample std = 0.00707...
	downside := math.Sqrt(0.00005) * math.Sqrt(252)
	assert.InDelta(t, m.AnnualReturn/downside, m.Sortino, 1e-12)
}

func TestEvaluate_SingleObservation(t *testing.T) {
	m, err := Evaluate([]float64{0.05}, 252)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.AnnualVolatility)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.InDelta(t, 0.05, m.TotalReturn, 1e-15)
}

func TestEvaluate_DefaultPeriods(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.002}
	a, err := Evaluate(returns, 0)
	require.NoError(t, err)
	b, err := Evaluate(returns, DefaultPeriodsPerYear)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWealthAndDrawdowns(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	s := domain.Series{Dates: dates, Values: []float64{0.10, -0.10}}

	w := Wealth(s)
	assert.Equal(t, dates, w.Dates)
	assert.InDelta(t, 0.99, w.Values[1], 1e-12)

	dd := Drawdowns(s)
	assert.InDelta(t, -0.10, dd.Values[1], 1e-12)
}
