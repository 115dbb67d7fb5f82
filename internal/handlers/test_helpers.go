package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/integrations"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context
func WithAuthContext(req *http.Request, userID, role string) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Email: userID + "@example.com", Role: role}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// WithURLParams sets chi route parameters on the request
func WithURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the status, error code and message of an error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode, expectedMessage string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedCode, resp.Code, "Error code mismatch")
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, resp.Error, "Error message mismatch")
	}
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	LoginFunc                func(ctx context.Context, email, password, ipAddress string) (*services.LoginResult, error)
	LogoutFunc               func(ctx context.Context, claims *models.TokenClaims) error
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ResetPasswordFunc        func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, ipAddress)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc == nil {
		return nil
	}
	return m.RequestPasswordResetFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrUnauthorized
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetUserFunc       func(ctx context.Context, actor models.Actor, id string) (*models.User, error)
	ListUsersFunc     func(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error)
	UpdateProfileFunc func(ctx context.Context, actor models.Actor, id string, in services.UpdateProfileInput) (*models.User, error)
	DeleteUserFunc    func(ctx context.Context, actor models.Actor, id string) error
}

func (m *MockUserService) GetUser(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, actor, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, actor, limit, offset)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, actor models.Actor, id string, in services.UpdateProfileInput) (*models.User, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, actor, id, in)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actor models.Actor, id string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, actor, id)
}

// MockPolicyRequestService implements PolicyRequestServiceInterface for testing
type MockPolicyRequestService struct {
	SubmitRequestFunc    func(ctx context.Context, actor models.Actor, in services.SubmitRequestInput) (*models.PolicyRequest, string, error)
	DecideFunc           func(ctx context.Context, actor models.Actor, requestID, action string) (string, error)
	ListPendingFunc      func(ctx context.Context, actor models.Actor) ([]*models.PolicyRequestDetail, error)
	ListUserPoliciesFunc func(ctx context.Context, actor models.Actor, userID string) ([]models.PolicyholderEntry, error)
}

func (m *MockPolicyRequestService) SubmitRequest(ctx context.Context, actor models.Actor, in services.SubmitRequestInput) (*models.PolicyRequest, string, error) {
	if m.SubmitRequestFunc == nil {
		return nil, "", models.ErrInternalServer
	}
	return m.SubmitRequestFunc(ctx, actor, in)
}

func (m *MockPolicyRequestService) Decide(ctx context.Context, actor models.Actor, requestID, action string) (string, error) {
	if m.DecideFunc == nil {
		return "", models.ErrInternalServer
	}
	return m.DecideFunc(ctx, actor, requestID, action)
}

func (m *MockPolicyRequestService) ListPending(ctx context.Context, actor models.Actor) ([]*models.PolicyRequestDetail, error) {
	if m.ListPendingFunc == nil {
		return []*models.PolicyRequestDetail{}, nil
	}
	return m.ListPendingFunc(ctx, actor)
}

func (m *MockPolicyRequestService) ListUserPolicies(ctx context.Context, actor models.Actor, userID string) ([]models.PolicyholderEntry, error) {
	if m.ListUserPoliciesFunc == nil {
		return []models.PolicyholderEntry{}, nil
	}
	return m.ListUserPoliciesFunc(ctx, actor, userID)
}

// MockPolicyService implements PolicyServiceInterface for testing
type MockPolicyService struct {
	ListFunc          func(ctx context.Context) ([]*models.Policy, error)
	GetFunc           func(ctx context.Context, id string) (*models.Policy, error)
	CreateFunc        func(ctx context.Context, actor models.Actor, in services.PolicyInput) (*models.Policy, error)
	UpdateFunc        func(ctx context.Context, actor models.Actor, id string, in services.PolicyInput) (*models.Policy, error)
	DeleteFunc        func(ctx context.Context, actor models.Actor, id string) error
	ListPurchasedFunc func(ctx context.Context, actor models.Actor) ([]*models.Policyholder, error)
}

func (m *MockPolicyService) List(ctx context.Context) ([]*models.Policy, error) {
	if m.ListFunc == nil {
		return []*models.Policy{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *MockPolicyService) Get(ctx context.Context, id string) (*models.Policy, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockPolicyService) Create(ctx context.Context, actor models.Actor, in services.PolicyInput) (*models.Policy, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, actor, in)
}

func (m *MockPolicyService) Update(ctx context.Context, actor models.Actor, id string, in services.PolicyInput) (*models.Policy, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actor, id, in)
}

func (m *MockPolicyService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, actor, id)
}

func (m *MockPolicyService) ListPurchased(ctx context.Context, actor models.Actor) ([]*models.Policyholder, error) {
	if m.ListPurchasedFunc == nil {
		return []*models.Policyholder{}, nil
	}
	return m.ListPurchasedFunc(ctx, actor)
}

// MockClaimService implements ClaimServiceInterface for testing
type MockClaimService struct {
	FileClaimFunc       func(ctx context.Context, actor models.Actor, in services.FileClaimInput) (*models.Claim, error)
	ListByUserFunc      func(ctx context.Context, actor models.Actor, userID string) ([]*models.ClaimDetail, error)
	ListAllFunc         func(ctx context.Context, actor models.Actor, statuses []string) ([]*models.ClaimDetail, error)
	CancelFunc          func(ctx context.Context, actor models.Actor, claimID string) (string, error)
	DecideFunc          func(ctx context.Context, actor models.Actor, claimID, status string) (*models.Claim, string, error)
	PresignDocumentFunc func(ctx context.Context, actor models.Actor, contentType string) (*integrations.DocumentUpload, error)
}

func (m *MockClaimService) FileClaim(ctx context.Context, actor models.Actor, in services.FileClaimInput) (*models.Claim, error) {
	if m.FileClaimFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.FileClaimFunc(ctx, actor, in)
}

func (m *MockClaimService) ListByUser(ctx context.Context, actor models.Actor, userID string) ([]*models.ClaimDetail, error) {
	if m.ListByUserFunc == nil {
		return []*models.ClaimDetail{}, nil
	}
	return m.ListByUserFunc(ctx, actor, userID)
}

func (m *MockClaimService) ListAll(ctx context.Context, actor models.Actor, statuses []string) ([]*models.ClaimDetail, error) {
	if m.ListAllFunc == nil {
		return []*models.ClaimDetail{}, nil
	}
	return m.ListAllFunc(ctx, actor, statuses)
}

func (m *MockClaimService) Cancel(ctx context.Context, actor models.Actor, claimID string) (string, error) {
	if m.CancelFunc == nil {
		return "", models.ErrNotFound
	}
	return m.CancelFunc(ctx, actor, claimID)
}

func (m *MockClaimService) Decide(ctx context.Context, actor models.Actor, claimID, status string) (*models.Claim, string, error) {
	if m.DecideFunc == nil {
		return nil, "", models.ErrNotFound
	}
	return m.DecideFunc(ctx, actor, claimID, status)
}

func (m *MockClaimService) PresignDocument(ctx context.Context, actor models.Actor, contentType string) (*integrations.DocumentUpload, error) {
	if m.PresignDocumentFunc == nil {
		return nil, services.ErrDocumentsDisabled
	}
	return m.PresignDocumentFunc(ctx, actor, contentType)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	AnalyticsFunc func(ctx context.Context, actor models.Actor) (*models.Analytics, error)
}

func (m *MockAdminService) Analytics(ctx context.Context, actor models.Actor) (*models.Analytics, error) {
	if m.AnalyticsFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.AnalyticsFunc(ctx, actor)
}

// MockEngagementService implements EngagementServiceInterface for testing
type MockEngagementService struct {
	TrackFunc    func(ctx context.Context, actor models.Actor, in services.TrackEventInput) error
	InsightsFunc func(ctx context.Context, actor models.Actor) (*models.ProfileInsights, error)
}

func (m *MockEngagementService) Track(ctx context.Context, actor models.Actor, in services.TrackEventInput) error {
	if m.TrackFunc == nil {
		return models.ErrInternalServer
	}
	return m.TrackFunc(ctx, actor, in)
}

func (m *MockEngagementService) Insights(ctx context.Context, actor models.Actor) (*models.ProfileInsights, error) {
	if m.InsightsFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.InsightsFunc(ctx, actor)
}
