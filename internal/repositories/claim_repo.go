package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/database"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type ClaimRepository struct {
	db          *database.DB
	maxAttempts int
}

func NewClaimRepository(db *database.DB, maxAttempts int) *ClaimRepository {
	return &ClaimRepository{db: db, maxAttempts: maxAttempts}
}

const claimColumns = `id, user_id, policy_id, document_url, amount, status, date_filed, decided_at, decided_by, created_at`

func scanClaimRow(scanner rowScanner) (*models.Claim, error) {
	var c models.Claim

	err := scanner.Scan(
		&c.ID, &c.UserID, &c.PolicyID, &c.DocumentURL, &c.Amount, &c.Status,
		&c.DateFiled, &c.DecidedAt, &c.DecidedBy, &c.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *ClaimRepository) Create(ctx context.Context, c *models.Claim) (*models.Claim, error) {
	c.ID = uuid.New().String()
	c.Status = models.StatusPending
	c.CreatedAt = time.Now()

	query := `
		INSERT INTO claims (id, user_id, policy_id, document_url, amount, status, date_filed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + claimColumns

	return scanClaimRow(r.db.Pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.PolicyID, c.DocumentURL, c.Amount, c.Status, c.DateFiled, c.CreatedAt,
	))
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	return scanClaimRow(r.db.Pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id))
}

const claimDetailQuery = `
	SELECT c.id, c.user_id, c.policy_id, c.document_url, c.amount, c.status, c.date_filed, c.decided_at, c.decided_by, c.created_at,
	       u.name, u.email,
	       p.policy_number, p.type, p.coverage_amount, p.cost
	FROM claims c
	JOIN users u ON u.id = c.user_id
	JOIN policies p ON p.id = c.policy_id
`

func scanClaimDetails(rows pgx.Rows) ([]*models.ClaimDetail, error) {
	defer rows.Close()

	details := make([]*models.ClaimDetail, 0)
	for rows.Next() {
		var d models.ClaimDetail
		err := rows.Scan(
			&d.ID, &d.UserID, &d.PolicyID, &d.DocumentURL, &d.Amount, &d.Status, &d.DateFiled, &d.DecidedAt, &d.DecidedBy, &d.CreatedAt,
			&d.User.Name, &d.User.Email,
			&d.Policy.PolicyNumber, &d.Policy.Type, &d.Policy.CoverageAmount, &d.Policy.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		d.User.ID = d.UserID
		d.Policy.ID = d.PolicyID
		details = append(details, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return details, nil
}

func (r *ClaimRepository) ListByUser(ctx context.Context, userID string) ([]*models.ClaimDetail, error) {
	rows, err := r.db.Pool.Query(ctx, claimDetailQuery+` WHERE c.user_id = $1 ORDER BY c.date_filed DESC`, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanClaimDetails(rows)
}

// List returns claims across all users, restricted to statuses when given.
func (r *ClaimRepository) List(ctx context.Context, statuses []string) ([]*models.ClaimDetail, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) > 0 {
		rows, err = r.db.Pool.Query(ctx, claimDetailQuery+` WHERE c.status = ANY($1) ORDER BY c.date_filed DESC`, pq.Array(statuses))
	} else {
		rows, err = r.db.Pool.Query(ctx, claimDetailQuery+` ORDER BY c.date_filed DESC`)
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanClaimDetails(rows)
}

// DeletePending removes a claim that is still Pending. A claim that has been
// decided in the meantime yields ErrConflict.
func (r *ClaimRepository) DeletePending(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM claims WHERE id = $1 AND status = 'Pending'`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return models.ErrConflict
}

// UpdateStatus moves a Pending claim to status and enqueues tasks in the same
// transaction.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id, status, decidedBy string, tasks []*models.OutboxTask) (*models.Claim, error) {
	query := `
		UPDATE claims
		SET status = $2, decided_at = NOW(), decided_by = $3
		WHERE id = $1 AND status = 'Pending'
		RETURNING ` + claimColumns

	var updated *models.Claim
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		c, err := scanClaimRow(tx.QueryRow(ctx, query, id, status, nullableUUID(decidedBy)))
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrConflict
		}
		if err != nil {
			return err
		}
		if err := insertOutboxTasks(ctx, tx, r.maxAttempts, tasks); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ClaimRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM claims GROUP BY status`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanCounts(rows)
}

func (r *ClaimRepository) SumApproved(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM claims WHERE status = 'Approved'`).Scan(&total)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return total, nil
}
