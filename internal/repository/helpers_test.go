package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/db"
)

// setupTestDB connects to the Postgres test database. The Postgres
// repository tests only run when PAYFLEXI_TEST_DB is set; the bolt
// store covers the CorrelationRepository contract everywhere else.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	if os.Getenv("PAYFLEXI_TEST_DB") == "" {
		t.Skip("PAYFLEXI_TEST_DB not set; skipping Postgres repository tests")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	logger := cfg.Logger.NewLogger()

	database, err := db.Connect(context.Background(), &cfg.Database, logger)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close() //nolint:errcheck // test cleanup
	})

	runMigrations(t, database)
	truncateTables(t, database)

	return database
}

func runMigrations(t *testing.T, database *db.DB) {
	t.Helper()

	migrationPath := filepath.Join("..", "..", "internal", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
}

func truncateTables(t *testing.T, database *db.DB) {
	t.Helper()

	tables := []string{"correlation_records", "idempotency_keys"}
	for _, table := range tables {
		_, err := database.ExecContext(context.Background(), "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
