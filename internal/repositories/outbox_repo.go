package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/database"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type OutboxRepository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

func NewOutboxRepository(db *database.DB, maxAttempts int) *OutboxRepository {
	return &OutboxRepository{pool: db.Pool, maxAttempts: maxAttempts}
}

const outboxColumns = `id, kind, payload, status, attempts, max_attempts, next_attempt_at, last_error, created_at, updated_at`

func scanOutboxRow(scanner rowScanner) (*models.OutboxTask, error) {
	var t models.OutboxTask

	err := scanner.Scan(
		&t.ID, &t.Kind, &t.Payload, &t.Status, &t.Attempts, &t.MaxAttempts,
		&t.NextAttemptAt, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

// insertOutboxTasks writes tasks through q so callers can enqueue inside their
// own transaction.
func insertOutboxTasks(ctx context.Context, q execer, maxAttempts int, tasks []*models.OutboxTask) error {
	query := `
		INSERT INTO outbox_tasks (id, kind, payload, status, max_attempts, next_attempt_at)
		VALUES ($1, $2, $3, 'pending', $4, NOW())
	`

	for _, t := range tasks {
		if t == nil {
			continue
		}
		attempts := t.MaxAttempts
		if attempts <= 0 {
			attempts = maxAttempts
		}
		if _, err := q.Exec(ctx, query, t.ID, t.Kind, []byte(t.Payload), attempts); err != nil {
			return fmt.Errorf("failed to enqueue %s task: %w", t.Kind, database.MapPostgresError(err))
		}
	}
	return nil
}

func (r *OutboxRepository) Enqueue(ctx context.Context, tasks ...*models.OutboxTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return insertOutboxTasks(ctx, r.pool, r.maxAttempts, tasks)
}

// ClaimDue marks up to limit due tasks as processing and returns them. Rows
// stuck in processing longer than staleAfter are reclaimed.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, staleAfter time.Duration) ([]*models.OutboxTask, error) {
	query := `
		UPDATE outbox_tasks
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_tasks
			WHERE (status = 'pending' AND next_attempt_at <= NOW())
			   OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $2))
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	rows, err := r.pool.Query(ctx, query, limit, staleAfter.Seconds())
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	tasks := make([]*models.OutboxTask, 0, limit)
	for rows.Next() {
		t, err := scanOutboxRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_tasks SET status = 'done', last_error = NULL, updated_at = NOW() WHERE id = $1`, id)
	return database.MapPostgresError(err)
}

// MarkFailed records the error and either reschedules the task or, when dead
// is set, parks it for good.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id, lastError string, nextAttemptAt time.Time, dead bool) error {
	status := models.TaskPending
	if dead {
		status = models.TaskDead
	}

	query := `
		UPDATE outbox_tasks
		SET status = $2, last_error = $3, next_attempt_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, status, lastError, nextAttemptAt)
	return database.MapPostgresError(err)
}

// PurgeCompleted deletes done tasks last touched before olderThan.
func (r *OutboxRepository) PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM outbox_tasks WHERE status = 'done' AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id string) (*models.OutboxTask, error) {
	return scanOutboxRow(r.pool.QueryRow(ctx, `SELECT `+outboxColumns+` FROM outbox_tasks WHERE id = $1`, id))
}

var _ execer = (pgx.Tx)(nil)
