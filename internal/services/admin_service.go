package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

// AdminUserCounter is the subset of UserRepository methods needed by AdminService.
type AdminUserCounter interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

type AdminPolicyCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatusCounter groups a ledger's rows by status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type AdminClaimStats interface {
	StatusCounter
	SumApproved(ctx context.Context) (float64, error)
}

// AdminService builds the admin dashboard.
type AdminService struct {
	users    AdminUserCounter
	policies AdminPolicyCounter
	requests StatusCounter
	claims   AdminClaimStats
	logger   *slog.Logger
}

func NewAdminService(users AdminUserCounter, policies AdminPolicyCounter, requests StatusCounter, claims AdminClaimStats, logger *slog.Logger) *AdminService {
	return &AdminService{
		users:    users,
		policies: policies,
		requests: requests,
		claims:   claims,
		logger:   logger,
	}
}

// withStatuses fills in zero counts so every status is always present.
func withStatuses(counts map[string]int) map[string]int {
	out := map[string]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for k, v := range counts {
		out[k] = v
	}
	return out
}

func (s *AdminService) Analytics(ctx context.Context, actor models.Actor) (*models.Analytics, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	fail := func(what string, err error) (*models.Analytics, error) {
		s.logger.Error("failed to compute analytics", slog.String("metric", what), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return fail("users_by_role", err)
	}
	totalPolicies, err := s.policies.Count(ctx)
	if err != nil {
		return fail("total_policies", err)
	}
	requests, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return fail("requests_by_status", err)
	}
	claims, err := s.claims.CountByStatus(ctx)
	if err != nil {
		return fail("claims_by_status", err)
	}
	approved, err := s.claims.SumApproved(ctx)
	if err != nil {
		return fail("approved_claim_amount", err)
	}

	users := map[string]int{models.RoleUser: 0, models.RoleAdmin: 0}
	for k, v := range byRole {
		users[k] = v
	}

	return &models.Analytics{
		UsersByRole:         users,
		TotalPolicies:       totalPolicies,
		RequestsByStatus:    withStatuses(requests),
		ClaimsByStatus:      withStatuses(claims),
		ApprovedClaimAmount: approved,
	}, nil
}
