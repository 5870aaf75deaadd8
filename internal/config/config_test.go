package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VOLREGIME_DATA_DIR", dir)
	t.Setenv("VOLREGIME_DATASET", "")
	t.Setenv("GO_PORT", "")
	t.Setenv("DEV_MODE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "market_data.csv"), cfg.Dataset)
	assert.Equal(t, filepath.Join(dir, "volregime.db"), cfg.DatabasePath())
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200, cfg.RetainRuns)
	assert.False(t, cfg.DevMode)
}

func TestLoad_FromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VOLREGIME_DATA_DIR", dir)
	t.Setenv("VOLREGIME_DATASET", "/srv/prices.csv")
	t.Setenv("VOLREGIME_REFRESH_SCHEDULE", "0 22 * * 1-5")
	t.Setenv("VOLREGIME_RETAIN_RUNS", "10")
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/prices.csv", cfg.Dataset)
	assert.Equal(t, "0 22 * * 1-5", cfg.RefreshSchedule)
	assert.Equal(t, 10, cfg.RetainRuns)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("VOLREGIME_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{Port: 70000, Dataset: "x.csv"}
	assert.Error(t, cfg.Validate())
}
