package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestNewSeries_RejectsOutOfOrderDates(t *testing.T) {
	d := days(3)
	d[1], d[2] = d[2], d[1]

	_, err := NewSeries(d, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestNewSeries_RejectsDuplicateDates(t *testing.T) {
	d := days(3)
	d[2] = d[1]

	_, err := NewSeries(d, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestNewSeries_RejectsLengthMismatch(t *testing.T) {
	_, err := NewSeries(days(2), []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestReturnTable_AddInstrument(t *testing.T) {
	table := NewReturnTable(days(3))
	require.NoError(t, table.AddInstrument("SPY", []float64{0.01, 0.02, 0.03}))
	require.NoError(t, table.AddInstrument("TLT", []float64{0.00, math.NaN(), 0.01}))

	assert.Equal(t, []string{"SPY", "TLT"}, table.Instruments)
	assert.Error(t, table.AddInstrument("SPY", []float64{0, 0, 0}), "duplicate instrument")
	assert.ErrorIs(t, table.AddInstrument("GLD", []float64{0}), ErrMisaligned)

	r, ok := table.Return("SPY", 1)
	assert.True(t, ok)
	assert.Equal(t, 0.02, r)

	_, ok = table.Return("TLT", 1)
	assert.False(t, ok, "NaN marks a missing observation")

	_, ok = table.Return("GLD", 0)
	assert.False(t, ok)

	_, err := table.Column("GLD")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
	assert.NoError(t, table.Validate())
}

func TestReturnTable_SeriesCopiesColumn(t *testing.T) {
	table := NewReturnTable(days(2))
	require.NoError(t, table.AddInstrument("GLD", []float64{0.01, 0.02}))

	s, err := table.Series("GLD")
	require.NoError(t, err)
	s.Values[0] = 99

	col, _ := table.Column("GLD")
	assert.Equal(t, 0.01, col[0])
}
