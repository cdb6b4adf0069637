package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/zixifan/bili-helper/db"
)

// SetupTestDB creates a test database connection and runs migrations.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// ResetTables truncates the mutable tables between tests.
func ResetTables(t *testing.T, database *sql.DB) {
	t.Helper()
	for _, table := range []string{"keywords", "creators", "list_entries", "sessions"} {
		if _, err := database.Exec("TRUNCATE " + table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	if _, err := database.Exec(`UPDATE settings SET send_interval_hours = 2, aggregates_enabled = TRUE,
		highlight_special = TRUE, highlight_paid = TRUE, email_recipients = '', webhook_url = '' WHERE id = 1`); err != nil {
		t.Fatalf("reset settings: %v", err)
	}
}
