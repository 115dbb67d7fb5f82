// Package pgtest starts a throwaway PostgreSQL container with the schema
// applied, for repository integration tests.
package pgtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/claimsdesk/internal/database"
)

// tables lists every application table, children first.
var tables = []string{
	"outbox_tasks",
	"claims",
	"policyholder_entries",
	"policyholders",
	"policy_requests",
	"policies",
	"users",
}

// TestDB manages the PostgreSQL testcontainer and its pool
type TestDB struct {
	Container  *postgres.PostgresContainer
	ConnString string
	DB         *database.DB
}

// Start runs postgres:16-alpine and applies the embedded migrations. Docker
// being unavailable is reported as an error so callers can skip.
func Start(ctx context.Context) (tdb *TestDB, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("claimsdesk"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{Container: container, ConnString: connStr, DB: db}, nil
}

// Reset empties every table for test isolation
func (t *TestDB) Reset(ctx context.Context) error {
	_, err := t.DB.Pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Teardown closes the pool and stops the container
func (t *TestDB) Teardown(ctx context.Context) error {
	if t.DB != nil {
		t.DB.Close()
	}
	if t.Container != nil {
		return t.Container.Terminate(ctx)
	}
	return nil
}
