package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/integrations"
	"github.com/BradenHooton/claimsdesk/internal/models"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc            func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc            func(ctx context.Context, id string) error
	SetResetTokenFunc     func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ConsumeResetTokenFunc func(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, tokenHash, passwordHash, now)
	}
	return nil, models.ErrNotFound
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc func(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, expiresAt)
	}
	return nil
}

// MockOutbox records enqueued tasks.
type MockOutbox struct {
	mu          sync.Mutex
	Tasks       []*models.OutboxTask
	EnqueueFunc func(ctx context.Context, tasks ...*models.OutboxTask) error
}

func (m *MockOutbox) Enqueue(ctx context.Context, tasks ...*models.OutboxTask) error {
	if m.EnqueueFunc != nil {
		if err := m.EnqueueFunc(ctx, tasks...); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, tasks...)
	return nil
}

// Kinds lists the kinds of recorded tasks in order.
func (m *MockOutbox) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, len(m.Tasks))
	for i, t := range m.Tasks {
		kinds[i] = t.Kind
	}
	return kinds
}

// Emails decodes the recorded email tasks.
func (m *MockOutbox) Emails() []models.EmailPayload {
	return EmailPayloads(m.Tasks)
}

// EmailPayloads decodes the email tasks among tasks.
func EmailPayloads(tasks []*models.OutboxTask) []models.EmailPayload {
	var out []models.EmailPayload
	for _, t := range tasks {
		if t.Kind != models.TaskSendEmail {
			continue
		}
		var p models.EmailPayload
		if err := json.Unmarshal(t.Payload, &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// MockPolicyRepository implements PolicyRepository for testing
type MockPolicyRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Policy, error)
	ListFunc    func(ctx context.Context) ([]*models.Policy, error)
	CreateFunc  func(ctx context.Context, p *models.Policy) (*models.Policy, error)
	UpdateFunc  func(ctx context.Context, id string, p *models.Policy) (*models.Policy, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockPolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPolicyRepository) List(ctx context.Context) ([]*models.Policy, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Policy{}, nil
}

func (m *MockPolicyRepository) Create(ctx context.Context, p *models.Policy) (*models.Policy, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPolicyRepository) Update(ctx context.Context, id string, p *models.Policy) (*models.Policy, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, p)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPolicyRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPolicyholderRepository implements PolicyholderRepository for testing
type MockPolicyholderRepository struct {
	GetByUserIDFunc        func(ctx context.Context, userID string) (*models.Policyholder, error)
	ListAllFunc            func(ctx context.Context) ([]*models.Policyholder, error)
	CountEntriesByUserFunc func(ctx context.Context, userID string) (int, error)
	ListExpiringFunc       func(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error)
}

func (m *MockPolicyholderRepository) GetByUserID(ctx context.Context, userID string) (*models.Policyholder, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockPolicyholderRepository) ListAll(ctx context.Context) ([]*models.Policyholder, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.Policyholder{}, nil
}

func (m *MockPolicyholderRepository) CountEntriesByUser(ctx context.Context, userID string) (int, error) {
	if m.CountEntriesByUserFunc != nil {
		return m.CountEntriesByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockPolicyholderRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error) {
	if m.ListExpiringFunc != nil {
		return m.ListExpiringFunc(ctx, from, to)
	}
	return []*models.ExpiringEntry{}, nil
}

// MockPolicyRequestRepository implements PolicyRequestRepository for testing
type MockPolicyRequestRepository struct {
	CreateFunc       func(ctx context.Context, req *models.PolicyRequest, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.PolicyRequest, error)
	ListByStatusFunc func(ctx context.Context, status string) ([]*models.PolicyRequestDetail, error)
	ApproveFunc      func(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
	RejectFunc       func(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error)
}

func (m *MockPolicyRequestRepository) Create(ctx context.Context, req *models.PolicyRequest, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req, tasks)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPolicyRequestRepository) GetByID(ctx context.Context, id string) (*models.PolicyRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPolicyRequestRepository) ListByStatus(ctx context.Context, status string) ([]*models.PolicyRequestDetail, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return []*models.PolicyRequestDetail{}, nil
}

func (m *MockPolicyRequestRepository) Approve(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, decidedBy, tasks)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPolicyRequestRepository) Reject(ctx context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, decidedBy, tasks)
	}
	return nil, models.ErrInternalServer
}

// MockClaimRepository implements ClaimRepository for testing
type MockClaimRepository struct {
	CreateFunc        func(ctx context.Context, c *models.Claim) (*models.Claim, error)
	GetByIDFunc       func(ctx context.Context, id string) (*models.Claim, error)
	ListByUserFunc    func(ctx context.Context, userID string) ([]*models.ClaimDetail, error)
	ListFunc          func(ctx context.Context, statuses []string) ([]*models.ClaimDetail, error)
	DeletePendingFunc func(ctx context.Context, id string) error
	UpdateStatusFunc  func(ctx context.Context, id, status, decidedBy string, tasks []*models.OutboxTask) (*models.Claim, error)
}

func (m *MockClaimRepository) Create(ctx context.Context, c *models.Claim) (*models.Claim, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockClaimRepository) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockClaimRepository) ListByUser(ctx context.Context, userID string) ([]*models.ClaimDetail, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.ClaimDetail{}, nil
}

func (m *MockClaimRepository) List(ctx context.Context, statuses []string) ([]*models.ClaimDetail, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, statuses)
	}
	return []*models.ClaimDetail{}, nil
}

func (m *MockClaimRepository) DeletePending(ctx context.Context, id string) error {
	if m.DeletePendingFunc != nil {
		return m.DeletePendingFunc(ctx, id)
	}
	return nil
}

func (m *MockClaimRepository) UpdateStatus(ctx context.Context, id, status, decidedBy string, tasks []*models.OutboxTask) (*models.Claim, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, decidedBy, tasks)
	}
	return nil, models.ErrInternalServer
}

// MockDocumentPresigner implements DocumentPresigner for testing
type MockDocumentPresigner struct {
	PresignUploadFunc func(ctx context.Context, userID, contentType string) (*integrations.DocumentUpload, error)
}

func (m *MockDocumentPresigner) PresignUpload(ctx context.Context, userID, contentType string) (*integrations.DocumentUpload, error) {
	if m.PresignUploadFunc != nil {
		return m.PresignUploadFunc(ctx, userID, contentType)
	}
	return nil, integrations.ErrUnsupportedContentType
}

// NewTestLogger discards all output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func NewTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}
