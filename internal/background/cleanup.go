package background

import (
	"context"
	"log/slog"
	"time"
)

type OutboxPurger interface {
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error)
}

type ResetTokenCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically purges finished outbox tasks and expired
// password reset tokens from the database.
type CleanupManager struct {
	outbox    OutboxPurger
	users     ResetTokenCleaner
	retention time.Duration
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	outbox OutboxPurger,
	users ResetTokenCleaner,
	retention time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		outbox:    outbox,
		users:     users,
		retention: retention,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single cleanup pass. Each step runs even when the
// other fails.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()

	purged, err := cm.outbox.PurgeCompleted(cleanupCtx, now.Add(-cm.retention))
	if err != nil {
		cm.logger.Error("failed to purge completed outbox tasks", slog.Any("error", err))
	} else if purged > 0 {
		cm.logger.Info("outbox purge completed", slog.Int64("rows_deleted", purged))
	}

	cleared, err := cm.users.ClearExpiredResetTokens(cleanupCtx, now)
	if err != nil {
		cm.logger.Error("failed to clear expired reset tokens", slog.Any("error", err))
	} else if cleared > 0 {
		cm.logger.Info("expired reset tokens cleared", slog.Int64("rows_updated", cleared))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
