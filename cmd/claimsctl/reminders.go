package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/claimsdesk/internal/services"
)

func remindersCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Policy expiry reminders",
	}

	var window time.Duration
	send := &cobra.Command{
		Use:   "send",
		Short: "Queue reminder emails for holdings ending within the window",
		Long: `Queue one reminder email per policy holding whose end date falls
between now and now+window. Emails are delivered by the API's outbox worker.

Run it from cron or a scheduler, for example once a day:
  claimsctl reminders send --window 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window < 0 {
				return fmt.Errorf("--window must not be negative")
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				n, err := b.Reminders.SendExpiryReminders(ctx, window)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %d reminder(s)\n", n)
				return nil
			})
		},
	}
	send.Flags().DurationVar(&window, "window", services.DefaultReminderWindow, "how far ahead to look for expiring holdings")

	cmd.AddCommand(send)
	return cmd
}
