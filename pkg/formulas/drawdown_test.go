package formulas

import (
	"math"
	"testing"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{name: "empty", returns: nil, expected: 0},
		{name: "only gains", returns: []float64{0.01, 0.02, 0.03}, expected: 0},
		{name: "single loss after peak", returns: []float64{0.10, -0.10}, expected: -0.10},
		{name: "recovery does not erase the trough", returns: []float64{0.10, -0.20, 0.50}, expected: -0.20},
		{name: "alternating", returns: []float64{0.01, -0.01, 0.02, -0.02}, expected: -0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.returns)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("MaxDrawdown() = %v, want %v", got, tt.expected)
			}
			if got > 0 {
				t.Errorf("MaxDrawdown() = %v, must be <= 0", got)
			}
		})
	}
}

func TestWealthAndDrawdownSeries(t *testing.T) {
	returns := []float64{0.10, -0.20, 0.25}
	wealth := WealthCurve(returns)
	want := []float64{1.10, 0.88, 1.10}
	for i := range want {
		if math.Abs(wealth[i]-want[i]) > 1e-12 {
			t.Errorf("WealthCurve()[%d] = %v, want %v", i, wealth[i], want[i])
		}
	}

	dd := DrawdownSeries(returns)
	if dd[0] != 0 || math.Abs(dd[1]+0.2) > 1e-12 || math.Abs(dd[2]) > 1e-12 {
		t.Errorf("DrawdownSeries() = %v", dd)
	}
}
