// Package testdb provides utilities for tests that run against a real
// PostgreSQL database. Tests using it skip themselves when no database URL
// is configured.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/nepalijets/nepalijets-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// URL environment variables, in order of precedence.
const (
	TestDatabaseURLEnv = "NEPALIJETS_TEST_DB_URL"
	DatabaseURLEnv     = "DATABASE_URL"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDatabaseURL returns the database URL for tests, or "" when none is set.
func GetTestDatabaseURL() string {
	if url := os.Getenv(TestDatabaseURLEnv); url != "" {
		return url
	}
	return os.Getenv(DatabaseURLEnv)
}

// GetTestDBWithT opens a connection with an up-to-date schema and closes it
// when the test ends. The test is skipped if no database URL is set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skipf("%s or %s not set - skipping integration test", TestDatabaseURLEnv, DatabaseURLEnv)
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database connection: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed")

	migrateOnce.Do(func() {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		migrateErr = postgres.RunMigrations(context.Background(), db, "up", quiet)
	})
	require.NoError(t, migrateErr, "Failed to run migrations")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely and in parallel without leaving rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
