package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()

	assert.Equal(t, 3, p.States)
	assert.Equal(t, []int{2, 3, 4, 5}, p.CandidateStates)
	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, 100, p.MaxIterations)
	assert.InDelta(t, 0.01, p.Tolerance, 1e-15)
	assert.InDelta(t, 0.001, p.MinVariance, 1e-15)
	assert.Equal(t, 1, p.LagDays)
	assert.Equal(t, 252, p.PeriodsPerYear)
	assert.Equal(t, []string{"TLT", "GLD", "SPY"}, p.Instruments)
	assert.Equal(t, "VIX", p.Signal)
	assert.Equal(t, "SPY", p.Benchmark)
	assert.NoError(t, p.Validate())
}

func TestParseProfile_OverridesKeepExplicitZero(t *testing.T) {
	p, err := ParseProfile([]byte(`
name: fast
states: 4
lag_days: 0
seed: 0
instruments: [SPY, TLT]
`))
	require.NoError(t, err)

	assert.Equal(t, "fast", p.Name)
	assert.Equal(t, 4, p.States)
	assert.Equal(t, 0, p.LagDays)
	assert.Equal(t, uint64(0), p.Seed)
	assert.Equal(t, []string{"SPY", "TLT"}, p.Instruments)
	assert.Equal(t, 100, p.MaxIterations, "unset keys keep defaults")
}

func TestParseProfile_Validation(t *testing.T) {
	cases := map[string]string{
		"too few states":    "states: 1",
		"too many states":   "states: 9",
		"negative lag":      "lag_days: -1",
		"zero tolerance":    "tolerance: 0",
		"bad candidate":     "candidate_states: [1, 3]",
		"duplicate symbols": "instruments: [SPY, SPY]",
		"empty signal":      "signal: ''",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseProfile_Malformed(t *testing.T) {
	_, err := ParseProfile([]byte("states: [nope"))
	assert.Error(t, err)
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "default", p.Name)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: weekly\nperiods_per_year: 52\n"), 0644))

	p, err = LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "weekly", p.Name)
	assert.Equal(t, 52, p.PeriodsPerYear)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProfileColumns(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, []string{"TLT", "GLD", "SPY"}, p.Columns())

	p.Instruments = []string{"TLT", "GLD"}
	assert.Equal(t, []string{"TLT", "GLD", "SPY"}, p.Columns())

	p.Benchmark = ""
	assert.Equal(t, []string{"TLT", "GLD"}, p.Columns())
}

func TestProfileUnmarshalJSON_AppliesDefaults(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"name":"api","states":4,"lag_days":0}`), &p))

	assert.Equal(t, "api", p.Name)
	assert.Equal(t, 4, p.States)
	assert.Equal(t, 0, p.LagDays)
	assert.Equal(t, 100, p.MaxIterations)
	assert.Equal(t, []string{"TLT", "GLD", "SPY"}, p.Instruments)
	assert.NoError(t, p.Validate())
}
