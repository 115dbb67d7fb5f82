package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/claimsdesk/internal/models"
	pkgauth "github.com/BradenHooton/claimsdesk/pkg/auth"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

// HoldingCounter reports how many policyholder entries a user has.
type HoldingCounter interface {
	CountEntriesByUser(ctx context.Context, userID string) (int, error)
}

// UserService handles user business logic
type UserService struct {
	repo        UserRepository
	holdings    HoldingCounter
	outbox      OutboxEnqueuer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	bcryptCost  int
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, holdings HoldingCounter, outbox OutboxEnqueuer, bcryptCost int, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = pkgauth.BcryptCost
	}
	return &UserService{
		repo:        repo,
		holdings:    holdings,
		outbox:      outbox,
		logger:      logger,
		auditLogger: auditLogger,
		bcryptCost:  bcryptCost,
	}
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("User not found.")
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// GetUser returns a user to its owner or an admin.
func (s *UserService) GetUser(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if err := actor.RequireOwnerOrAdmin(id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListUsers retrieves a page of users for admins
func (s *UserService) ListUsers(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, id string, in UpdateProfileInput) (*models.User, error) {
	if err := actor.RequireOwnerOrAdmin(id); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("Name cannot be empty.")
		}
		user.Name = name
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if !emailPattern.MatchString(email) {
			return nil, models.NewValidationError("Invalid email format.")
		}
		user.Email = email
	}

	passwordChanged := false
	if in.Password != nil {
		hash, err := hashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			if errors.Is(err, models.ErrBadRequest) {
				return nil, err
			}
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	updated, err := s.repo.Update(ctx, id, user)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.NewConflictError("Email is already in use.")
		case errors.Is(err, models.ErrNotFound):
			return nil, models.NewNotFoundError("User not found.")
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if passwordChanged {
		s.auditLogger.LogPasswordChange(id, "profile_update", true)
	}
	s.logger.Info("user profile updated", slog.String("user_id", id))

	enqueueAfterCommit(ctx, s.outbox, s.logger, (&taskBatch{}).profile(updated), slog.String("user_id", id))
	return updated, nil
}

// DeleteUser removes a user who holds no policies or claims, then drops their
// customer-data profiles.
func (s *UserService) DeleteUser(ctx context.Context, actor models.Actor, id string) error {
	if err := actor.RequireOwnerOrAdmin(id); err != nil {
		return err
	}

	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	held, err := s.holdings.CountEntriesByUser(ctx, id)
	if err != nil {
		s.logger.Error("failed to count holdings", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if held > 0 {
		return models.NewConflictError("User cannot be deleted as they have active policies.")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return models.NewNotFoundError("User not found.")
		case errors.Is(err, models.ErrConflict):
			return models.NewConflictError("User cannot be deleted as they have active policies or claims.")
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_deleted", id, map[string]string{"deleted_by": actor.UserID})

	batch := (&taskBatch{}).add(models.TaskDeleteProfile, models.DeleteProfilePayload{UserID: id})
	enqueueAfterCommit(ctx, s.outbox, s.logger, batch, slog.String("user_id", id))
	return nil
}
