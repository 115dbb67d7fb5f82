package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

type PolicyRepository interface {
	GetByID(ctx context.Context, id string) (*models.Policy, error)
	List(ctx context.Context) ([]*models.Policy, error)
	Create(ctx context.Context, p *models.Policy) (*models.Policy, error)
	Update(ctx context.Context, id string, p *models.Policy) (*models.Policy, error)
	Delete(ctx context.Context, id string) error
}

type PolicyholderRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Policyholder, error)
	ListAll(ctx context.Context) ([]*models.Policyholder, error)
	CountEntriesByUser(ctx context.Context, userID string) (int, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error)
}

// PolicyService manages the policy catalog
type PolicyService struct {
	repo        PolicyRepository
	holders     PolicyholderRepository
	outbox      OutboxEnqueuer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewPolicyService(repo PolicyRepository, holders PolicyholderRepository, outbox OutboxEnqueuer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *PolicyService {
	return &PolicyService{
		repo:        repo,
		holders:     holders,
		outbox:      outbox,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

type PolicyInput struct {
	PolicyNumber   string
	Type           string
	CoverageAmount float64
	Cost           *float64
	StartDate      time.Time
	EndDate        time.Time
}

func (in *PolicyInput) validate() error {
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	in.Type = strings.TrimSpace(in.Type)
	if in.PolicyNumber == "" || in.Type == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return models.NewValidationError("All fields are required.")
	}
	if !positiveFinite(in.CoverageAmount) {
		return models.NewValidationError("Coverage amount must be a positive number.")
	}
	if in.Cost != nil && !positiveFinite(*in.Cost) {
		return models.NewValidationError("Cost must be a positive number.")
	}
	if !in.EndDate.After(in.StartDate) {
		return models.NewValidationError("End date must be after start date.")
	}
	return nil
}

// positiveFinite is false for NaN, which compares false against everything.
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func (in PolicyInput) policy() *models.Policy {
	return &models.Policy{
		PolicyNumber:   in.PolicyNumber,
		Type:           in.Type,
		CoverageAmount: in.CoverageAmount,
		Cost:           in.Cost,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	}
}

func (s *PolicyService) List(ctx context.Context) ([]*models.Policy, error) {
	policies, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list policies", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return policies, nil
}

func (s *PolicyService) Get(ctx context.Context, id string) (*models.Policy, error) {
	if !validID(id) {
		return nil, models.NewNotFoundError("Policy not found.")
	}
	policy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("Policy not found.")
		}
		s.logger.Error("failed to get policy", slog.String("policy_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return policy, nil
}

func (s *PolicyService) Create(ctx context.Context, actor models.Actor, in PolicyInput) (*models.Policy, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	policy, err := s.repo.Create(ctx, in.policy())
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewConflictError("Policy number already exists.")
		}
		s.logger.Error("failed to create policy", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("policy created", slog.String("policy_id", policy.ID), slog.String("admin_id", actor.UserID))
	enqueueAfterCommit(ctx, s.outbox, s.logger, (&taskBatch{}).fact(policyFact(policy)), slog.String("policy_id", policy.ID))
	return policy, nil
}

func (s *PolicyService) Update(ctx context.Context, actor models.Actor, id string, in PolicyInput) (*models.Policy, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, models.NewNotFoundError("Policy not found.")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	policy, err := s.repo.Update(ctx, id, in.policy())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.NewNotFoundError("Policy not found.")
		case errors.Is(err, models.ErrConflict):
			return nil, models.NewConflictError("Policy number already exists.")
		}
		s.logger.Error("failed to update policy", slog.String("policy_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("policy updated", slog.String("policy_id", id), slog.String("admin_id", actor.UserID))
	enqueueAfterCommit(ctx, s.outbox, s.logger, (&taskBatch{}).fact(policyFact(policy)), slog.String("policy_id", id))
	return policy, nil
}

// Delete removes a policy nobody holds.
func (s *PolicyService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return err
	}
	if !validID(id) {
		return models.NewNotFoundError("Policy not found.")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return models.NewNotFoundError("Policy not found.")
		case errors.Is(err, models.ErrConflict):
			return models.NewConflictError("Policy cannot be deleted. It is referenced by purchases or claims.")
		}
		s.logger.Error("failed to delete policy", slog.String("policy_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("policy_deleted", actor.UserID, map[string]string{"policy_id": id})
	return nil
}

// ListPurchased returns every policyholder with their entries.
func (s *PolicyService) ListPurchased(ctx context.Context, actor models.Actor) ([]*models.Policyholder, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	holders, err := s.holders.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list policyholders", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return holders, nil
}
