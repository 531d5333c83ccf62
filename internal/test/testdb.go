// Package test provides shared test fixtures for exercising the engine
// against a real SQLite database rather than a mock.
package test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jwwelbor/taskflow/internal/db"
)

// NewDB creates a fresh, schema-initialized SQLite database rooted in the
// test's temp directory. Each call returns an independent database so tests
// can run in parallel without colliding on shared state.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taskflow-test.db")
	sqlDB, err := db.InitDB(path)
	if err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return sqlDB
}
