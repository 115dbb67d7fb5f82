// Command claimsctl runs operator tasks against the claimsdesk database:
// migrations, expiry reminders and outbox housekeeping.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/BradenHooton/claimsdesk/internal/database"
	"github.com/BradenHooton/claimsdesk/internal/repositories"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

var Version = "dev"

type migrator interface {
	Migrate(ctx context.Context) error
	MigrationStatus(ctx context.Context) error
}

type reminderSender interface {
	SendExpiryReminders(ctx context.Context, window time.Duration) (int, error)
}

type outboxPurger interface {
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error)
}

// backend is opened lazily so --help and flag errors never touch the database.
type backend struct {
	Migrator  migrator
	Reminders reminderSender
	Outbox    outboxPurger
	Close     func()
}

type openFunc func(ctx context.Context) (*backend, error)

func main() {
	if err := newRootCmd(openBackend, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open openFunc, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "claimsctl",
		Short:         "Operator tasks for the claimsdesk service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(migrateCmd(open))
	rootCmd.AddCommand(remindersCmd(open))
	rootCmd.AddCommand(outboxCmd(open))

	return rootCmd
}

// withBackend opens the backend for the duration of fn.
func withBackend(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, b *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := open(ctx)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(ctx, b)
}

func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := pkglogger.New(os.Stderr, cfg.Server.LogLevel)

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	outbox := repositories.NewOutboxRepository(db, cfg.Outbox.MaxAttempts)
	holders := repositories.NewPolicyholderRepository(db)

	return &backend{
		Migrator:  db,
		Reminders: services.NewReminderService(holders, outbox, logger),
		Outbox:    outbox,
		Close:     db.Close,
	}, nil
}
