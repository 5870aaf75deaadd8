package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "analysis.db"),
		Name: "analysis",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesFileAndMigrates(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())
	// Migrations are idempotent
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('analysis_runs', 'regime_states')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, "analysis", db.Name())
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Conn().Exec(`CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	assert.ErrorContains(t, err, "panic in transaction")
}
