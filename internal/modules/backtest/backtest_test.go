package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/volregime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func table(t *testing.T, columns map[string][]float64, order ...string) *domain.ReturnTable {
	t.Helper()
	n := len(columns[order[0]])
	tbl := domain.NewReturnTable(days(n))
	for _, name := range order {
		require.NoError(t, tbl.AddInstrument(name, columns[name]))
	}
	return tbl
}

func TestApplyLag_ShiftsForward(t *testing.T) {
	signal, err := ApplyLag(domain.StateSequence{0, 1, 2, 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.LaggedSignal{domain.NoSignal, 0, 1, 2}, signal)
}

func TestApplyLag_ZeroIsIdentity(t *testing.T) {
	states := domain.StateSequence{2, 0, 1}
	signal, err := ApplyLag(states, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.LaggedSignal{2, 0, 1}, signal)
}

func TestApplyLag_LongerThanSeries(t *testing.T) {
	signal, err := ApplyLag(domain.StateSequence{1, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.LaggedSignal{domain.NoSignal, domain.NoSignal}, signal)
}

func TestApplyLag_RejectsNegative(t *testing.T) {
	_, err := ApplyLag(domain.StateSequence{0}, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidLag)
}

func TestRegimeMeanReturns(t *testing.T) {
	tbl := table(t, map[string][]float64{
		"TLT": {0.01, 0.03, -0.02, -0.04},
		"GLD": {0.02, math.NaN(), 0.00, 0.02},
	}, "TLT", "GLD")

	means, err := RegimeMeanReturns(domain.StateSequence{0, 0, 1, 1}, tbl)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, means[0]["TLT"], 1e-12)
	assert.InDelta(t, 0.02, means[0]["GLD"], 1e-12, "NaN day is skipped")
	assert.InDelta(t, -0.03, means[1]["TLT"], 1e-12)
	assert.InDelta(t, 0.01, means[1]["GLD"], 1e-12)
}

func TestRegimeMeanReturns_Misaligned(t *testing.T) {
	tbl := table(t, map[string][]float64{"TLT": {0.01, 0.02}}, "TLT")
	_, err := RegimeMeanReturns(domain.StateSequence{0}, tbl)
	assert.ErrorIs(t, err, domain.ErrMisaligned)
}

func TestBestInstrumentPerRegime(t *testing.T) {
	means := map[int]map[string]float64{
		0: {"TLT": 0.001, "GLD": 0.002, "SPY": -0.001},
		1: {"TLT": 0.003, "GLD": 0.000, "SPY": 0.001},
	}

	rules := BestInstrumentPerRegime(means, []string{"TLT", "GLD", "SPY"})
	assert.Equal(t, domain.AllocationRules{0: "GLD", 1: "TLT"}, rules)
}

func TestBestInstrumentPerRegime_TieGoesToPriority(t *testing.T) {
	means := map[int]map[string]float64{
		0: {"TLT": 0.002, "GLD": 0.002, "SPY": 0.002},
	}

	assert.Equal(t, "GLD", BestInstrumentPerRegime(means, []string{"GLD", "SPY", "TLT"})[0])
	assert.Equal(t, "SPY", BestInstrumentPerRegime(means, []string{"SPY", "TLT", "GLD"})[0])
	assert.Equal(t, "GLD", BestInstrumentPerRegime(means, nil)[0], "alphabetical without priority")
}

func TestSimulate_CountsExcludedDays(t *testing.T) {
	tbl := table(t, map[string][]float64{
		"TLT": {0.01, 0.02, 0.03, math.NaN(), 0.05},
		"GLD": {0.10, 0.20, 0.30, 0.40, 0.50},
	}, "TLT", "GLD")
	rules := domain.AllocationRules{0: "TLT", 1: "GLD"}
	signal := domain.LaggedSignal{domain.NoSignal, 0, 2, 0, 1}

	sim, err := Simulate(signal, rules, tbl)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.02, 0.50}, sim.Returns.Values)
	assert.Equal(t, []string{"TLT", "GLD"}, sim.Holdings)
	assert.Equal(t, []time.Time{tbl.Dates[1], tbl.Dates[4]}, sim.Returns.Dates)
	assert.Equal(t, SimulationReport{
		Days:          5,
		Resolved:      2,
		NoSignal:      1,
		MissingRule:   1,
		MissingReturn: 1,
	}, sim.Report)
}

func TestSimulate_Misaligned(t *testing.T) {
	tbl := table(t, map[string][]float64{"TLT": {0.01, 0.02}}, "TLT")
	_, err := Simulate(domain.LaggedSignal{0}, domain.AllocationRules{0: "TLT"}, tbl)
	assert.ErrorIs(t, err, domain.ErrMisaligned)
}

func TestEqualWeight(t *testing.T) {
	tbl := table(t, map[string][]float64{
		"TLT": {0.03, 0.01, 0.02},
		"GLD": {0.00, math.NaN(), 0.04},
		"SPY": {-0.03, 0.02, 0.00},
	}, "TLT", "GLD", "SPY")

	ew, err := EqualWeight(tbl, tbl.Instruments)
	require.NoError(t, err)

	require.Len(t, ew.Values, 2, "day with a missing return is left out")
	assert.InDelta(t, 0.0, ew.Values[0], 1e-15)
	assert.InDelta(t, 0.02, ew.Values[1], 1e-15)
	assert.Equal(t, tbl.Dates[2], ew.Dates[1])
}

func TestEqualWeight_UnknownInstrument(t *testing.T) {
	tbl := table(t, map[string][]float64{"TLT": {0.01}}, "TLT")
	_, err := EqualWeight(tbl, []string{"TLT", "QQQ"})
	assert.ErrorIs(t, err, domain.ErrUnknownInstrument)
}

func TestBuyAndHold_SkipsMissing(t *testing.T) {
	tbl := table(t, map[string][]float64{"SPY": {0.01, math.NaN(), -0.02}}, "SPY")

	bh, err := BuyAndHold(tbl, "SPY")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, -0.02}, bh.Values)
}
