package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/claimsdesk/internal/models"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

type PolicyRequestRepository interface {
	Create(ctx context.Context, req *models.PolicyRequest, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
	GetByID(ctx context.Context, id string) (*models.PolicyRequest, error)
	ListByStatus(ctx context.Context, status string) ([]*models.PolicyRequestDetail, error)
	Approve(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
	Reject(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// PolicyRequestService runs the purchase approval workflow. Every decision,
// the policyholder append it implies and its notification tasks commit together.
type PolicyRequestService struct {
	requests    PolicyRequestRepository
	users       UserRepository
	policies    PolicyRepository
	holders     PolicyholderRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewPolicyRequestService(requests PolicyRequestRepository, users UserRepository, policies PolicyRepository, holders PolicyholderRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *PolicyRequestService {
	return &PolicyRequestService{
		requests:    requests,
		users:       users,
		policies:    policies,
		holders:     holders,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

type SubmitRequestInput struct {
	UserID    string
	PolicyID  string
	StartDate time.Time
	EndDate   time.Time
}

const (
	msgRequestSubmitted = "Your policy request has been submitted for admin approval."
	msgRequestApproved  = "Policy purchase approved and assigned to user."
	msgRequestRejected  = "Policy purchase request has been rejected."
	msgRequestProcessed = "This request has already been processed."
)

func (s *PolicyRequestService) SubmitRequest(ctx context.Context, actor models.Actor, in SubmitRequestInput) (*models.PolicyRequest, string, error) {
	if err := actor.RequireOwner(in.UserID); err != nil {
		return nil, "", err
	}
	if in.PolicyID == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, "", models.NewValidationError("All fields are required.")
	}
	if !validID(in.UserID) || !validID(in.PolicyID) {
		return nil, "", models.NewValidationError("Invalid userId or policyId format.")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, "", models.NewValidationError("End date must be after start date.")
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.NewNotFoundError("User not found.")
		}
		s.logger.Error("failed to get user", slog.String("user_id", in.UserID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	policy, err := s.policies.GetByID(ctx, in.PolicyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.NewNotFoundError("Policy does not exist.")
		}
		s.logger.Error("failed to get policy", slog.String("policy_id", in.PolicyID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	batch := (&taskBatch{}).email(purchaseSubmittedEmail(user, policy, in.StartDate, in.EndDate))
	if batch.err != nil {
		s.logger.Error("failed to build request tasks", slog.Any("error", batch.err))
		return nil, "", models.ErrInternalServer
	}

	req, err := s.requests.Create(ctx, &models.PolicyRequest{
		UserID:    in.UserID,
		PolicyID:  in.PolicyID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}, batch.tasks)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, "", models.NewConflictError("You have already requested this policy. Please wait for admin approval.")
		}
		s.logger.Error("failed to create policy request", slog.String("user_id", in.UserID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	s.logger.Info("policy requested",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("policy_id", req.PolicyID))
	return req, msgRequestSubmitted, nil
}

// Decide approves or rejects a Pending request.
func (s *PolicyRequestService) Decide(ctx context.Context, actor models.Actor, requestID, action string) (string, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return "", err
	}
	if action != models.ActionApprove && action != models.ActionReject {
		return "", models.NewValidationError("Invalid action. Use 'Approve' or 'Reject'.")
	}
	if !validID(requestID) {
		return "", models.NewNotFoundError("Policy request not found.")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewNotFoundError("Policy request not found.")
		}
		s.logger.Error("failed to get policy request", slog.String("request_id", requestID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	if !req.IsPending() {
		return "", models.NewConflictError(msgRequestProcessed)
	}

	user, userErr := s.users.GetByID(ctx, req.UserID)
	policy, policyErr := s.policies.GetByID(ctx, req.PolicyID)
	for _, err := range []error{userErr, policyErr} {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load request parties", slog.String("request_id", requestID), slog.Any("error", err))
			return "", models.ErrInternalServer
		}
	}
	found := userErr == nil && policyErr == nil
	if action == models.ActionApprove && !found {
		return "", models.NewNotFoundError("User or policy not found.")
	}

	status := models.StatusRejected
	if action == models.ActionApprove {
		status = models.StatusApproved
	}

	batch := &taskBatch{}
	if found {
		decided := *req
		decided.Status = status
		batch.email(policyDecisionEmail(user, policy, status, req.StartDate, req.EndDate)).
			fact(requestFact(&decided, policy))
	}
	if batch.err != nil {
		s.logger.Error("failed to build decision tasks", slog.Any("error", batch.err))
		return "", models.ErrInternalServer
	}

	if action == models.ActionApprove {
		_, err = s.requests.Approve(ctx, requestID, actor.UserID, batch.tasks)
	} else {
		_, err = s.requests.Reject(ctx, requestID, actor.UserID, batch.tasks)
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return "", models.NewConflictError(msgRequestProcessed)
		case errors.Is(err, models.ErrNotFound):
			return "", models.NewNotFoundError("Policy request not found.")
		}
		s.logger.Error("failed to decide policy request", slog.String("request_id", requestID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.auditLogger.LogDecision("policy_request", requestID, status, actor.UserID)
	s.logger.Info("policy request decided", slog.String("request_id", requestID), slog.String("status", status))

	if status == models.StatusApproved {
		return msgRequestApproved, nil
	}
	return msgRequestRejected, nil
}

func (s *PolicyRequestService) ListPending(ctx context.Context, actor models.Actor) ([]*models.PolicyRequestDetail, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	pending, err := s.requests.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		s.logger.Error("failed to list pending requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return pending, nil
}

// ListUserPolicies returns the user's holdings; a user with none gets an empty list.
func (s *PolicyRequestService) ListUserPolicies(ctx context.Context, actor models.Actor, userID string) ([]models.PolicyholderEntry, error) {
	if err := actor.RequireOwnerOrAdmin(userID); err != nil {
		return nil, err
	}
	if !validID(userID) {
		return []models.PolicyholderEntry{}, nil
	}

	holder, err := s.holders.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []models.PolicyholderEntry{}, nil
		}
		s.logger.Error("failed to get policyholder", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return holder.Entries, nil
}
