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

type PolicyholderRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyholderRepository(db *database.DB) *PolicyholderRepository {
	return &PolicyholderRepository{pool: db.Pool}
}

// ensurePolicyholder returns the user's Policyholder id, creating the record
// on first use.
func ensurePolicyholder(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	query := `
		INSERT INTO policyholders (id, user_id, purchase_date, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`

	var id string
	if err := tx.QueryRow(ctx, query, uuid.New().String(), userID).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert policyholder: %w", database.MapPostgresError(err))
	}
	return id, nil
}

const entryQuery = `
	SELECT h.id, h.user_id, u.name, h.purchase_date,
	       e.id, e.policy_id, e.request_id, e.start_date, e.end_date, e.created_at,
	       p.policy_number, p.type, p.coverage_amount, p.cost
	FROM policyholders h
	JOIN users u ON u.id = h.user_id
	JOIN policyholder_entries e ON e.policyholder_id = h.id
	JOIN policies p ON p.id = e.policy_id
`

// scanHolders folds joined entry rows into Policyholder records, keeping the
// order in which holders first appear.
func scanHolders(rows pgx.Rows) ([]*models.Policyholder, error) {
	defer rows.Close()

	holders := make([]*models.Policyholder, 0)
	byID := make(map[string]*models.Policyholder)

	for rows.Next() {
		var h models.Policyholder
		var e models.PolicyholderEntry

		err := rows.Scan(
			&h.ID, &h.UserID, &h.UserName, &h.PurchaseDate,
			&e.ID, &e.PolicyID, &e.RequestID, &e.StartDate, &e.EndDate, &e.CreatedAt,
			&e.Policy.PolicyNumber, &e.Policy.Type, &e.Policy.CoverageAmount, &e.Policy.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policyholder entry: %w", err)
		}
		e.Policy.ID = e.PolicyID

		holder, ok := byID[h.ID]
		if !ok {
			holder = &h
			byID[h.ID] = holder
			holders = append(holders, holder)
		}
		holder.Entries = append(holder.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return holders, nil
}

// GetByUserID returns the user's record with entries in the order they were
// granted, or ErrNotFound when nothing has been approved yet.
func (r *PolicyholderRepository) GetByUserID(ctx context.Context, userID string) (*models.Policyholder, error) {
	rows, err := r.pool.Query(ctx, entryQuery+` WHERE h.user_id = $1 ORDER BY e.created_at, e.id`, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	holders, err := scanHolders(rows)
	if err != nil {
		return nil, err
	}
	if len(holders) == 0 {
		return nil, models.ErrNotFound
	}
	return holders[0], nil
}

func (r *PolicyholderRepository) ListAll(ctx context.Context) ([]*models.Policyholder, error) {
	rows, err := r.pool.Query(ctx, entryQuery+` ORDER BY h.purchase_date, h.id, e.created_at, e.id`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanHolders(rows)
}

func (r *PolicyholderRepository) CountEntriesByUser(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM policyholder_entries e
		JOIN policyholders h ON h.id = e.policyholder_id
		WHERE h.user_id = $1
	`

	var n int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

func (r *PolicyholderRepository) HasEntriesForPolicy(ctx context.Context, policyID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM policyholder_entries WHERE policy_id = $1)`, policyID).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// ListExpiring returns holdings whose end date falls within [from, to].
func (r *PolicyholderRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error) {
	query := `
		SELECT e.id, e.end_date, u.id, u.name, u.email,
		       p.id, p.policy_number, p.type, p.coverage_amount, p.cost
		FROM policyholder_entries e
		JOIN policyholders h ON h.id = e.policyholder_id
		JOIN users u ON u.id = h.user_id
		JOIN policies p ON p.id = e.policy_id
		WHERE e.end_date BETWEEN $1::date AND $2::date
		ORDER BY e.end_date
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	entries := make([]*models.ExpiringEntry, 0)
	for rows.Next() {
		var e models.ExpiringEntry
		err := rows.Scan(
			&e.EntryID, &e.EndDate, &e.User.ID, &e.User.Name, &e.User.Email,
			&e.Policy.ID, &e.Policy.PolicyNumber, &e.Policy.Type, &e.Policy.CoverageAmount, &e.Policy.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expiring entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
