package formulas

// WealthCurve returns the running product of (1+r), starting from 1.
func WealthCurve(returns []float64) []float64 {
	wealth := make([]float64, len(returns))
	value := 1.0
	for i, r := range returns {
		value *= 1 + r
		wealth[i] = value
	}
	return wealth
}

// DrawdownSeries returns wealth/peak - 1 for every period, where peak is
// the running maximum of the wealth curve. Values are <= 0.
func DrawdownSeries(returns []float64) []float64 {
	wealth := WealthCurve(returns)
	drawdowns := make([]float64, len(wealth))
	if len(wealth) == 0 {
		return drawdowns
	}

	peak := wealth[0]
	for i, value := range wealth {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdowns[i] = value/peak - 1
		}
	}

	return drawdowns
}

// MaxDrawdown returns the deepest drawdown of a return series as a
// non-positive fraction (-0.25 = 25% below the running peak).
func MaxDrawdown(returns []float64) float64 {
	maxDrawdown := 0.0
	for _, dd := range DrawdownSeries(returns) {
		if dd < maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}
