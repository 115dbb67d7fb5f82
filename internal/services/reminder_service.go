package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

// DefaultReminderWindow is how far ahead expiring holdings are looked up.
const DefaultReminderWindow = 7 * 24 * time.Hour

type ExpiringHoldingLister interface {
	ListExpiring(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error)
}

// ReminderService emails users whose holdings are about to end.
type ReminderService struct {
	holdings ExpiringHoldingLister
	outbox   OutboxEnqueuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewReminderService(holdings ExpiringHoldingLister, outbox OutboxEnqueuer, logger *slog.Logger) *ReminderService {
	return &ReminderService{holdings: holdings, outbox: outbox, logger: logger, now: time.Now}
}

// SendExpiryReminders enqueues one reminder per holding ending within window
// and returns how many were enqueued.
func (s *ReminderService) SendExpiryReminders(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	from := s.now()
	to := from.Add(window)

	entries, err := s.holdings.ListExpiring(ctx, from, to)
	if err != nil {
		return 0, err
	}

	batch := &taskBatch{}
	for _, e := range entries {
		if e.User.Email == "" {
			continue
		}
		batch.email(expiryReminderEmail(e))
	}
	if batch.err != nil {
		return 0, batch.err
	}
	if len(batch.tasks) == 0 {
		s.logger.Info("no expiring holdings", slog.Time("from", from), slog.Time("to", to))
		return 0, nil
	}

	if err := s.outbox.Enqueue(ctx, batch.tasks...); err != nil {
		return 0, err
	}

	s.logger.Info("expiry reminders enqueued", slog.Int("count", len(batch.tasks)))
	return len(batch.tasks), nil
}
