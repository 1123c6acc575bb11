// Package testutil provides PostgreSQL databases for integration tests.
//
// By default a single postgres container is started per test binary and every
// test gets its own freshly created database in it. Set DATABASE_URL (or the
// DATABASE_HOST family of variables) to use an existing server instead.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the server image used when no external database is configured.
const PostgresImage = "postgres:17-alpine"

var (
	adminOnce sync.Once
	adminDSN  string
	adminErr  error
)

// ensureAdmin returns a DSN for a database that may create and drop databases,
// starting the container on first use.
func ensureAdmin() (string, error) {
	adminOnce.Do(func() {
		if cfg := GetDatabaseConfig(); cfg.URL != "" {
			adminDSN = cfg.URL
			return
		}

		ctx := context.Background()
		container, err := postgres.Run(ctx,
			PostgresImage,
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			adminErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			adminErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		// The container is reaped by ryuk when the test binary exits.
		adminDSN = dsn
	})
	return adminDSN, adminErr
}

// EmptyDB returns a connection to a new, empty database. The database is dropped
// when the test completes.
func EmptyDB(tb testing.TB) *sql.DB {
	tb.Helper()

	admin, err := ensureAdmin()
	require.NoError(tb, err, "failed to reach PostgreSQL")

	name := uniqueDBName("rpcrewrite")
	require.NoError(tb, execAdmin(context.Background(), admin, "CREATE DATABASE "+pq.QuoteIdentifier(name)),
		"failed to create test database")

	dsn, err := replaceDBName(admin, name)
	require.NoError(tb, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.Ping(), "failed to ping test database")

	tb.Cleanup(func() {
		_ = db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = execAdmin(ctx, admin, "DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(name)+" WITH (FORCE)")
	})

	return db
}

func execAdmin(ctx context.Context, dsn, stmt string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, stmt)
	return err
}

// uniqueDBName generates a unique database name with the given prefix.
func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// replaceDBName swaps the database name in a postgres:// URL, keeping its query.
func replaceDBName(dsn, name string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}
