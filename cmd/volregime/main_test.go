package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/volregime/internal/config"
)

func TestParseCandidates(t *testing.T) {
	got, err := parseCandidates("2, 3,4")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, got)

	_, err = parseCandidates("2,x")
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	profile := config.DefaultProfile()
	require.NoError(t, applyOverrides(profile, 4, 0))
	assert.Equal(t, 4, profile.States)
	assert.Equal(t, 0, profile.LagDays)

	profile = config.DefaultProfile()
	require.NoError(t, applyOverrides(profile, 0, -1))
	assert.Equal(t, 3, profile.States)
	assert.Equal(t, 1, profile.LagDays)

	assert.Error(t, applyOverrides(config.DefaultProfile(), 9, -1))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["analyze"])
	assert.True(t, names["compare"])
	assert.True(t, names["serve"])
}
