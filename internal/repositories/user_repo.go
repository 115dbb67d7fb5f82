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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, password_hash, name, role, reset_token_hash, reset_token_expires_at, created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role,
		&user.ResetTokenHash, &user.ResetTokenExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.CreatedAt, user.UpdatedAt,
	))
}

// Update writes name, email and password hash.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, id, user.Name, user.Email, user.PasswordHash))
}

// Delete removes a user who holds no policies and has no claims on file. The
// check and the delete share one statement; the RESTRICT foreign keys catch
// a holding or claim committed concurrently. Either case yields ErrConflict.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM users
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM policyholders WHERE user_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM claims WHERE user_id = $1)
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.ErrConflict
		}
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return database.MapPostgresError(err)
	}
	if exists {
		return models.ErrConflict
	}
	return models.ErrNotFound
}

// SetResetToken stores the hash of a password reset token and its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeResetToken swaps the password hash and clears the token in one
// statement. It returns ErrNotFound when the token is unknown, expired or
// already used.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = NOW()
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $3
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, tokenHash, passwordHash, now))
}

// ClearExpiredResetTokens drops reset tokens past their expiry.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= $1
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanCounts(rows)
}

// scanCounts reads (label, count) rows into a map.
func scanCounts(rows pgx.Rows) (map[string]int, error) {
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
