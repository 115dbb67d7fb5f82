package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/database"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PolicyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(db *database.DB) *PolicyRepository {
	return &PolicyRepository{pool: db.Pool}
}

const policyColumns = `id, policy_number, type, coverage_amount, cost, start_date, end_date, created_at, updated_at`

func scanPolicyRow(scanner rowScanner) (*models.Policy, error) {
	var p models.Policy

	err := scanner.Scan(
		&p.ID, &p.PolicyNumber, &p.Type, &p.CoverageAmount, &p.Cost,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func scanPolicyRows(rows pgx.Rows) ([]*models.Policy, error) {
	defer rows.Close()

	policies := make([]*models.Policy, 0)
	for rows.Next() {
		p, err := scanPolicyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return policies, nil
}

func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`
	return scanPolicyRow(r.pool.QueryRow(ctx, query, id))
}

func (r *PolicyRepository) List(ctx context.Context) ([]*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}

	return scanPolicyRows(rows)
}

func (r *PolicyRepository) Create(ctx context.Context, p *models.Policy) (*models.Policy, error) {
	p.ID = uuid.New().String()

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO policies (id, policy_number, type, coverage_amount, cost, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + policyColumns

	return scanPolicyRow(r.pool.QueryRow(ctx, query,
		p.ID, p.PolicyNumber, p.Type, p.CoverageAmount, p.Cost, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt,
	))
}

func (r *PolicyRepository) Update(ctx context.Context, id string, p *models.Policy) (*models.Policy, error) {
	query := `
		UPDATE policies
		SET policy_number = $2, type = $3, coverage_amount = $4, cost = $5, start_date = $6, end_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + policyColumns

	return scanPolicyRow(r.pool.QueryRow(ctx, query,
		id, p.PolicyNumber, p.Type, p.CoverageAmount, p.Cost, p.StartDate, p.EndDate,
	))
}

// Delete removes a policy that no holding, request or claim references. The
// reference check and the delete share one statement; a referenced policy
// yields ErrConflict.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM policies
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM policyholder_entries WHERE policy_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM policy_requests WHERE policy_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM claims WHERE policy_id = $1)
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			// reference inserted between the check and the delete
			return models.ErrConflict
		}
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM policies WHERE id = $1)`, id).Scan(&exists); err != nil {
		return database.MapPostgresError(err)
	}
	if exists {
		return models.ErrConflict
	}
	return models.ErrNotFound
}

func (r *PolicyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM policies`).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}
