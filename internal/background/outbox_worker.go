package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/BradenHooton/claimsdesk/internal/models"
)

const maxBackoff = time.Hour

// OutboxStore is the subset of the outbox repository the worker drives.
type OutboxStore interface {
	ClaimDue(ctx context.Context, limit int, staleAfter time.Duration) ([]*models.OutboxTask, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastError string, nextAttemptAt time.Time, dead bool) error
}

type TaskHandler interface {
	Handle(ctx context.Context, task *models.OutboxTask) error
}

// OutboxWorker polls the outbox and executes due tasks with exponential
// backoff between attempts.
type OutboxWorker struct {
	store   OutboxStore
	handler TaskHandler
	cfg     config.OutboxConfig
	logger  *slog.Logger
	now     func() time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOutboxWorker(store OutboxStore, handler TaskHandler, cfg config.OutboxConfig, logger *slog.Logger) *OutboxWorker {
	return &OutboxWorker{
		store:   store,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start polls until Stop is called or ctx is cancelled.
func (w *OutboxWorker) Start(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started",
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Int("batch_size", w.cfg.BatchSize))

	for {
		select {
		case <-ticker.C:
			w.drain(ctx)
		case <-w.stopCh:
			w.logger.Info("outbox worker stopped")
			return
		case <-ctx.Done():
			w.logger.Info("outbox worker context cancelled")
			return
		}
	}
}

// Stop signals the worker and waits for the current batch to finish.
func (w *OutboxWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// drain keeps claiming batches while full ones come back.
func (w *OutboxWorker) drain(ctx context.Context) {
	for {
		n, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("failed to claim outbox tasks", slog.Any("error", err))
			return
		}
		if n < w.cfg.BatchSize || ctx.Err() != nil {
			return
		}
	}
}

// RunOnce claims and executes one batch, returning how many tasks it claimed.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.store.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.StaleAfter)
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		w.process(ctx, task)
	}
	return len(tasks), nil
}

func (w *OutboxWorker) process(ctx context.Context, task *models.OutboxTask) {
	attrs := []any{
		slog.String("task_id", task.ID),
		slog.String("kind", task.Kind),
		slog.Int("attempt", task.Attempts),
	}

	err := w.handler.Handle(ctx, task)
	if err == nil {
		if err := w.store.MarkDone(ctx, task.ID); err != nil {
			w.logger.Error("failed to mark outbox task done", append(attrs, slog.Any("error", err))...)
		}
		return
	}

	maxAttempts := task.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = w.cfg.MaxAttempts
	}
	dead := IsPermanent(err) || task.Attempts >= maxAttempts
	next := w.now().Add(Backoff(w.cfg.BaseBackoff, task.Attempts))

	if dead {
		w.logger.Error("outbox task failed permanently", append(attrs, slog.Any("error", err))...)
	} else {
		w.logger.Warn("outbox task failed, will retry",
			append(attrs, slog.Time("next_attempt_at", next), slog.Any("error", err))...)
	}

	if markErr := w.store.MarkFailed(ctx, task.ID, err.Error(), next, dead); markErr != nil {
		w.logger.Error("failed to record outbox task failure", append(attrs, slog.Any("error", markErr))...)
	}
}

// Backoff returns base * 2^(attempt-1), capped at an hour.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
