package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func outboxCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox housekeeping",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete completed tasks older than the given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				n, err := b.Outbox.PurgeCompleted(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d task(s)\n", n)
				return nil
			})
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "minimum age of completed tasks to delete")

	cmd.AddCommand(purge)
	return cmd
}
