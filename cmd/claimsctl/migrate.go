package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				if err := b.Migrator.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied state of each migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				return b.Migrator.MigrationStatus(ctx)
			})
		},
	})

	return cmd
}
