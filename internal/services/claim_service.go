package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/integrations"
	"github.com/BradenHooton/claimsdesk/internal/models"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

var documentURLPattern = regexp.MustCompile(`^(https?://)[\w\-]+(\.[\w\-]+)+[/#?]?.*$`)

type ClaimRepository interface {
	Create(ctx context.Context, c *models.Claim) (*models.Claim, error)
	GetByID(ctx context.Context, id string) (*models.Claim, error)
	ListByUser(ctx context.Context, userID string) ([]*models.ClaimDetail, error)
	List(ctx context.Context, statuses []string) ([]*models.ClaimDetail, error)
	DeletePending(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status, decidedBy string, tasks []*models.OutboxTask) (*models.Claim, error)
}

// DocumentPresigner issues upload URLs for claim documents.
type DocumentPresigner interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*integrations.DocumentUpload, error)
}

// ClaimService files, cancels and adjudicates claims
type ClaimService struct {
	claims      ClaimRepository
	policies    PolicyRepository
	users       UserRepository
	outbox      OutboxEnqueuer
	documents   DocumentPresigner
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewClaimService creates a ClaimService. documents may be nil, in which case
// PresignDocument reports the feature as unavailable.
func NewClaimService(claims ClaimRepository, policies PolicyRepository, users UserRepository, outbox OutboxEnqueuer, documents DocumentPresigner, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ClaimService {
	return &ClaimService{
		claims:      claims,
		policies:    policies,
		users:       users,
		outbox:      outbox,
		documents:   documents,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

type FileClaimInput struct {
	UserID      string
	PolicyID    string
	DocumentURL string
	Amount      float64
	DateFiled   time.Time
}

const msgClaimProcessed = "Claim has already been processed."

// ErrDocumentsDisabled is returned when no document bucket is configured.
var ErrDocumentsDisabled = errors.New("document uploads are not configured")

func (s *ClaimService) FileClaim(ctx context.Context, actor models.Actor, in FileClaimInput) (*models.Claim, error) {
	in.DocumentURL = strings.TrimSpace(in.DocumentURL)
	if in.UserID == "" || in.PolicyID == "" || in.DocumentURL == "" || in.Amount == 0 || in.DateFiled.IsZero() {
		return nil, models.NewValidationError("All fields are required.")
	}
	if err := actor.RequireOwner(in.UserID); err != nil {
		return nil, err
	}
	if !validID(in.UserID) || !validID(in.PolicyID) {
		return nil, models.NewValidationError("Invalid userId or policyId format.")
	}
	if !documentURLPattern.MatchString(in.DocumentURL) {
		return nil, models.NewValidationError("Invalid document URL.")
	}

	policy, err := s.policies.GetByID(ctx, in.PolicyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("Policy not found.")
		}
		s.logger.Error("failed to get policy", slog.String("policy_id", in.PolicyID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !positiveFinite(in.Amount) {
		return nil, models.NewValidationError("Claim amount must be greater than zero.")
	}
	if !(in.Amount <= policy.CoverageAmount) {
		return nil, models.NewValidationError("Claim amount cannot exceed policy coverage amount ($%.2f).", policy.CoverageAmount)
	}

	claim, err := s.claims.Create(ctx, &models.Claim{
		UserID:      in.UserID,
		PolicyID:    in.PolicyID,
		DocumentURL: in.DocumentURL,
		Amount:      in.Amount,
		DateFiled:   in.DateFiled,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.NewNotFoundError("User or policy not found.")
		}
		s.logger.Error("failed to create claim", slog.String("user_id", in.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("claim filed", slog.String("claim_id", claim.ID), slog.String("user_id", claim.UserID))

	batch := &taskBatch{}
	if user, err := s.users.GetByID(ctx, claim.UserID); err == nil {
		batch.email(claimSubmittedEmail(user, claim, policy))
	} else {
		s.logger.Warn("skipping claim confirmation email", slog.String("claim_id", claim.ID), slog.Any("error", err))
	}
	batch.fact(claimFact(claim))
	enqueueAfterCommit(ctx, s.outbox, s.logger, batch, slog.String("claim_id", claim.ID))

	return claim, nil
}

// ListByUser returns the user's claims to the owner or an admin.
func (s *ClaimService) ListByUser(ctx context.Context, actor models.Actor, userID string) ([]*models.ClaimDetail, error) {
	if err := actor.RequireOwnerOrAdmin(userID); err != nil {
		return nil, err
	}
	if !validID(userID) {
		return []*models.ClaimDetail{}, nil
	}

	claims, err := s.claims.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list claims", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return claims, nil
}

// ListAll returns every claim, optionally restricted to statuses.
func (s *ClaimService) ListAll(ctx context.Context, actor models.Actor, statuses []string) ([]*models.ClaimDetail, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if st != models.StatusPending && st != models.StatusApproved && st != models.StatusRejected {
			return nil, models.NewValidationError("Invalid status filter %q.", st)
		}
	}

	claims, err := s.claims.List(ctx, statuses)
	if err != nil {
		s.logger.Error("failed to list claims", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return claims, nil
}

// Cancel lets the owner withdraw a claim that is still Pending.
func (s *ClaimService) Cancel(ctx context.Context, actor models.Actor, claimID string) (string, error) {
	if actor.UserID == "" {
		return "", models.NewAuthenticationError("Authentication required.")
	}
	if !validID(claimID) {
		return "", models.NewNotFoundError("Claim not found.")
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewNotFoundError("Claim not found.")
		}
		s.logger.Error("failed to get claim", slog.String("claim_id", claimID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := actor.RequireOwner(claim.UserID); err != nil {
		return "", err
	}
	if !claim.IsPending() {
		return "", models.NewConflictError("Cannot delete a processed claim.")
	}

	if err := s.claims.DeletePending(ctx, claimID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return "", models.NewNotFoundError("Claim not found.")
		case errors.Is(err, models.ErrConflict):
			return "", models.NewConflictError("Cannot delete a processed claim.")
		}
		s.logger.Error("failed to delete claim", slog.String("claim_id", claimID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("claim canceled", slog.String("claim_id", claimID), slog.String("user_id", actor.UserID))
	return "Claim canceled successfully.", nil
}

// Decide approves or rejects a Pending claim.
func (s *ClaimService) Decide(ctx context.Context, actor models.Actor, claimID, status string) (*models.Claim, string, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, "", err
	}
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, "", models.NewValidationError("Invalid status. Use 'Approved' or 'Rejected'.")
	}
	if !validID(claimID) {
		return nil, "", models.NewNotFoundError("Claim not found.")
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.NewNotFoundError("Claim not found.")
		}
		s.logger.Error("failed to get claim", slog.String("claim_id", claimID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}
	if !claim.IsPending() {
		return nil, "", models.NewConflictError(msgClaimProcessed)
	}

	decided := *claim
	decided.Status = status
	batch := (&taskBatch{}).fact(claimFact(&decided))
	user, err := s.users.GetByID(ctx, claim.UserID)
	switch {
	case err == nil:
		batch.email(claimDecisionEmail(user, claim, status))
	case !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to get claim owner", slog.String("claim_id", claimID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}
	if batch.err != nil {
		s.logger.Error("failed to build decision tasks", slog.Any("error", batch.err))
		return nil, "", models.ErrInternalServer
	}

	updated, err := s.claims.UpdateStatus(ctx, claimID, status, actor.UserID, batch.tasks)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, "", models.NewConflictError(msgClaimProcessed)
		case errors.Is(err, models.ErrNotFound):
			return nil, "", models.NewNotFoundError("Claim not found.")
		}
		s.logger.Error("failed to update claim status", slog.String("claim_id", claimID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	s.auditLogger.LogDecision("claim", claimID, status, actor.UserID)
	return updated, fmt.Sprintf("Claim %s successfully!", strings.ToLower(status)), nil
}

// PresignDocument returns an upload slot whose DocumentURL can be passed as
// the claim's document reference.
func (s *ClaimService) PresignDocument(ctx context.Context, actor models.Actor, contentType string) (*integrations.DocumentUpload, error) {
	if actor.UserID == "" {
		return nil, models.NewAuthenticationError("Authentication required.")
	}
	if s.documents == nil {
		return nil, ErrDocumentsDisabled
	}

	upload, err := s.documents.PresignUpload(ctx, actor.UserID, contentType)
	if err != nil {
		if errors.Is(err, integrations.ErrUnsupportedContentType) {
			return nil, models.NewValidationError("Document must be a PDF, JPEG or PNG file.")
		}
		s.logger.Error("failed to presign document upload", slog.String("user_id", actor.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return upload, nil
}
