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
)

type PolicyRequestRepository struct {
	db          *database.DB
	maxAttempts int
}

func NewPolicyRequestRepository(db *database.DB, maxAttempts int) *PolicyRequestRepository {
	return &PolicyRequestRepository{db: db, maxAttempts: maxAttempts}
}

const policyRequestColumns = `id, user_id, policy_id, start_date, end_date, status, requested_at, decided_at, decided_by`

func scanPolicyRequestRow(scanner rowScanner) (*models.PolicyRequest, error) {
	var req models.PolicyRequest

	err := scanner.Scan(
		&req.ID, &req.UserID, &req.PolicyID, &req.StartDate, &req.EndDate,
		&req.Status, &req.RequestedAt, &req.DecidedAt, &req.DecidedBy,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &req, nil
}

// Create inserts a Pending request and its outbox tasks atomically. A second
// Pending request for the same user and policy violates
// idx_policy_requests_one_pending and comes back as ErrConflict.
func (r *PolicyRequestRepository) Create(ctx context.Context, req *models.PolicyRequest, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	req.ID = uuid.New().String()
	req.Status = models.StatusPending
	req.RequestedAt = time.Now()

	query := `
		INSERT INTO policy_requests (id, user_id, policy_id, start_date, end_date, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + policyRequestColumns

	var created *models.PolicyRequest
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanPolicyRequestRow(tx.QueryRow(ctx, query,
			req.ID, req.UserID, req.PolicyID, req.StartDate, req.EndDate, req.Status, req.RequestedAt,
		))
		if err != nil {
			return err
		}
		return insertOutboxTasks(ctx, tx, r.maxAttempts, tasks)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PolicyRequestRepository) GetByID(ctx context.Context, id string) (*models.PolicyRequest, error) {
	query := `SELECT ` + policyRequestColumns + ` FROM policy_requests WHERE id = $1`
	return scanPolicyRequestRow(r.db.Pool.QueryRow(ctx, query, id))
}

// ListByStatus returns requests in the given status joined with requester and
// policy summaries, oldest first.
func (r *PolicyRequestRepository) ListByStatus(ctx context.Context, status string) ([]*models.PolicyRequestDetail, error) {
	query := `
		SELECT r.id, r.user_id, r.policy_id, r.start_date, r.end_date, r.status, r.requested_at, r.decided_at, r.decided_by,
		       u.name, u.email,
		       p.policy_number, p.type, p.coverage_amount, p.cost
		FROM policy_requests r
		JOIN users u ON u.id = r.user_id
		JOIN policies p ON p.id = r.policy_id
		WHERE r.status = $1
		ORDER BY r.requested_at
	`

	rows, err := r.db.Pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy requests: %w", err)
	}
	defer rows.Close()

	details := make([]*models.PolicyRequestDetail, 0)
	for rows.Next() {
		var d models.PolicyRequestDetail
		err := rows.Scan(
			&d.ID, &d.UserID, &d.PolicyID, &d.StartDate, &d.EndDate, &d.Status, &d.RequestedAt, &d.DecidedAt, &d.DecidedBy,
			&d.User.Name, &d.User.Email,
			&d.Policy.PolicyNumber, &d.Policy.Type, &d.Policy.CoverageAmount, &d.Policy.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy request: %w", err)
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

// decide flips a Pending request to status. Zero rows means another decider
// got there first, reported as ErrConflict.
func decide(ctx context.Context, tx pgx.Tx, id, status, decidedBy string) (*models.PolicyRequest, error) {
	query := `
		UPDATE policy_requests
		SET status = $2, decided_at = NOW(), decided_by = $3
		WHERE id = $1 AND status = 'Pending'
		RETURNING ` + policyRequestColumns

	req, err := scanPolicyRequestRow(tx.QueryRow(ctx, query, id, status, nullableUUID(decidedBy)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrConflict
	}
	return req, err
}

// Approve marks the request Approved, appends the holding to the user's
// Policyholder record (creating it on first approval) and enqueues tasks, all
// in one transaction.
func (r *PolicyRequestRepository) Approve(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	var approved *models.PolicyRequest

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		req, err := decide(ctx, tx, id, models.StatusApproved, decidedBy)
		if err != nil {
			return err
		}

		holderID, err := ensurePolicyholder(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO policyholder_entries (id, policyholder_id, policy_id, request_id, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), holderID, req.PolicyID, req.ID, req.StartDate, req.EndDate)
		if err != nil {
			return fmt.Errorf("failed to append policyholder entry: %w", database.MapPostgresError(err))
		}

		if err := insertOutboxTasks(ctx, tx, r.maxAttempts, tasks); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (r *PolicyRequestRepository) Reject(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	var rejected *models.PolicyRequest

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		req, err := decide(ctx, tx, id, models.StatusRejected, decidedBy)
		if err != nil {
			return err
		}
		if err := insertOutboxTasks(ctx, tx, r.maxAttempts, tasks); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (r *PolicyRequestRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM policy_requests GROUP BY status`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanCounts(rows)
}

// nullableUUID maps non-UUID actors (the CLI's "system") to NULL.
func nullableUUID(id string) *string {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return &id
}
