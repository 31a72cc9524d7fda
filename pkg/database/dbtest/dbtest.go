// Package dbtest provides a migrated throwaway SQLite database for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/config"
	"github.com/Ruscigno/QuantLab/pkg/database"
)

// NewSQLite returns a migrated SQLite database that is closed when t ends.
func NewSQLite(t testing.TB) *database.DB {
	t.Helper()

	cfg := config.Config{
		DatabaseDriver: database.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "quantlab_test.db"),
	}
	db, err := database.NewDB(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}
