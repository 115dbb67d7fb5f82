package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/claimsdesk/migrations"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}

func (db *DB) prepareGoose() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{logger: db.logger})
	return goose.SetDialect("postgres")
}

// Migrate applies every pending embedded migration.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.prepareGoose(); err != nil {
		return fmt.Errorf("configure migrations: %w", err)
	}

	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of each embedded migration.
func (db *DB) MigrationStatus(ctx context.Context) error {
	if err := db.prepareGoose(); err != nil {
		return fmt.Errorf("configure migrations: %w", err)
	}

	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	return goose.StatusContext(ctx, sqlDB, ".")
}
