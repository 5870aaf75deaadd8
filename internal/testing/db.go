// Package testing provides testing utilities and helpers for the volregime project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/volregime/internal/database"
)

// NewTestDB creates a migrated SQLite database in the test's temporary
// directory. The database is closed when the test finishes.
//
// Supported schema names:
//   - "analysis" - applies analysis_schema.sql
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			// Log error but don't fail test - cleanup should be idempotent
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
