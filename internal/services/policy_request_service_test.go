package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

const requestID = "d0000000-0000-4000-8000-000000000004"

type requestFixture struct {
	requests *MockPolicyRequestRepository
	users    *MockUserRepository
	policies *MockPolicyRepository
	holders  *MockPolicyholderRepository
}

func newRequestFixture(t *testing.T) *requestFixture {
	user := existingUser(t, "secret1")
	policy := &models.Policy{ID: policyID, PolicyNumber: "POL-001", Type: "Auto", CoverageAmount: 20000}

	return &requestFixture{
		requests: &MockPolicyRequestRepository{},
		users: &MockUserRepository{GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, models.ErrNotFound
		}},
		policies: &MockPolicyRepository{GetByIDFunc: func(ctx context.Context, id string) (*models.Policy, error) {
			if id == policy.ID {
				return policy, nil
			}
			return nil, models.ErrNotFound
		}},
		holders: &MockPolicyholderRepository{},
	}
}

func (f *requestFixture) service() *PolicyRequestService {
	return NewPolicyRequestService(f.requests, f.users, f.policies, f.holders, NewTestLogger(), NewTestAuditLogger())
}

func pendingRequest() *models.PolicyRequest {
	return &models.PolicyRequest{
		ID:        requestID,
		UserID:    ownerID,
		PolicyID:  policyID,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.StatusPending,
	}
}

func submitInput() SubmitRequestInput {
	return SubmitRequestInput{
		UserID:    ownerID,
		PolicyID:  policyID,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPolicyRequestService_Submit(t *testing.T) {
	f := newRequestFixture(t)
	var tasks []*models.OutboxTask
	f.requests.CreateFunc = func(ctx context.Context, req *models.PolicyRequest, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		tasks = ts
		created := *req
		created.ID = requestID
		created.Status = models.StatusPending
		return &created, nil
	}

	req, msg, err := f.service().SubmitRequest(context.Background(), ownerActor, submitInput())
	require.NoError(t, err)

	assert.Equal(t, requestID, req.ID)
	assert.Equal(t, msgRequestSubmitted, msg)
	emails := EmailPayloads(tasks)
	require.Len(t, emails, 1)
	assert.Equal(t, "ada@example.com", emails[0].To)
	assert.NotEmpty(t, emails[0].Prompt)
}

func TestPolicyRequestService_Submit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		mutate  func(*SubmitRequestInput)
		wantErr error
		msg     string
	}{
		{"other user", otherActor, func(*SubmitRequestInput) {}, models.ErrForbidden, "Unauthorized action."},
		{"admin for someone else", adminActor, func(*SubmitRequestInput) {}, models.ErrForbidden, "Unauthorized action."},
		{"missing policy", ownerActor, func(in *SubmitRequestInput) { in.PolicyID = "" }, models.ErrBadRequest, "All fields are required."},
		{"malformed policy", ownerActor, func(in *SubmitRequestInput) { in.PolicyID = "xyz" }, models.ErrBadRequest, "Invalid userId or policyId format."},
		{"reversed dates", ownerActor, func(in *SubmitRequestInput) { in.StartDate, in.EndDate = in.EndDate, in.StartDate }, models.ErrBadRequest, "End date must be after start date."},
		{"unknown policy", ownerActor, func(in *SubmitRequestInput) { in.PolicyID = requestID }, models.ErrNotFound, "Policy does not exist."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRequestFixture(t)
			in := submitInput()
			tt.mutate(&in)

			_, _, err := f.service().SubmitRequest(context.Background(), tt.actor, in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestPolicyRequestService_Submit_Duplicate(t *testing.T) {
	f := newRequestFixture(t)
	f.requests.CreateFunc = func(ctx context.Context, req *models.PolicyRequest, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		return nil, models.ErrConflict
	}

	_, _, err := f.service().SubmitRequest(context.Background(), ownerActor, submitInput())

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.EqualError(t, err, "You have already requested this policy. Please wait for admin approval.")
}

func TestPolicyRequestService_Decide_Approve(t *testing.T) {
	f := newRequestFixture(t)
	f.requests.GetByIDFunc = func(ctx context.Context, id string) (*models.PolicyRequest, error) { return pendingRequest(), nil }
	var decidedBy string
	var tasks []*models.OutboxTask
	f.requests.ApproveFunc = func(ctx context.Context, id, by string, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		decidedBy, tasks = by, ts
		req := pendingRequest()
		req.Status = models.StatusApproved
		return req, nil
	}

	msg, err := f.service().Decide(context.Background(), adminActor, requestID, models.ActionApprove)
	require.NoError(t, err)

	assert.Equal(t, msgRequestApproved, msg)
	assert.Equal(t, adminID, decidedBy)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.TaskSendEmail, tasks[0].Kind)
	assert.Equal(t, models.TaskRecordFact, tasks[1].Kind)
	assert.Equal(t, "Policy Purchase Request APPROVED", EmailPayloads(tasks)[0].Subject)
}

func TestPolicyRequestService_Decide_Reject(t *testing.T) {
	f := newRequestFixture(t)
	f.requests.GetByIDFunc = func(ctx context.Context, id string) (*models.PolicyRequest, error) { return pendingRequest(), nil }
	approveCalled := false
	f.requests.ApproveFunc = func(ctx context.Context, id, by string, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		approveCalled = true
		return nil, nil
	}
	f.requests.RejectFunc = func(ctx context.Context, id, by string, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		return pendingRequest(), nil
	}

	msg, err := f.service().Decide(context.Background(), adminActor, requestID, models.ActionReject)
	require.NoError(t, err)

	assert.Equal(t, msgRequestRejected, msg)
	assert.False(t, approveCalled)
}

func TestPolicyRequestService_Decide_Errors(t *testing.T) {
	decided := pendingRequest()
	decided.Status = models.StatusRejected

	tests := []struct {
		name    string
		actor   models.Actor
		action  string
		stored  *models.PolicyRequest
		wantErr error
		msg     string
	}{
		{"not admin", ownerActor, models.ActionApprove, pendingRequest(), models.ErrForbidden, "Access denied. Admin role required."},
		{"bad action", adminActor, "Maybe", pendingRequest(), models.ErrBadRequest, "Invalid action. Use 'Approve' or 'Reject'."},
		{"missing", adminActor, models.ActionApprove, nil, models.ErrNotFound, "Policy request not found."},
		{"already decided", adminActor, models.ActionApprove, decided, models.ErrConflict, msgRequestProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRequestFixture(t)
			f.requests.GetByIDFunc = func(ctx context.Context, id string) (*models.PolicyRequest, error) {
				if tt.stored == nil {
					return nil, models.ErrNotFound
				}
				return tt.stored, nil
			}

			_, err := f.service().Decide(context.Background(), tt.actor, requestID, tt.action)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestPolicyRequestService_Decide_LostRace(t *testing.T) {
	f := newRequestFixture(t)
	f.requests.GetByIDFunc = func(ctx context.Context, id string) (*models.PolicyRequest, error) { return pendingRequest(), nil }
	f.requests.ApproveFunc = func(ctx context.Context, id, by string, ts []*models.OutboxTask) (*models.PolicyRequest, error) {
		return nil, models.ErrConflict
	}

	_, err := f.service().Decide(context.Background(), adminActor, requestID, models.ActionApprove)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestPolicyRequestService_Decide_ApproveMissingParty(t *testing.T) {
	f := newRequestFixture(t)
	req := pendingRequest()
	req.UserID = "e0000000-0000-4000-8000-000000000005"
	f.requests.GetByIDFunc = func(ctx context.Context, id string) (*models.PolicyRequest, error) { return req, nil }

	_, err := f.service().Decide(context.Background(), adminActor, requestID, models.ActionApprove)

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "User or policy not found.")
}

func TestPolicyRequestService_ListUserPolicies(t *testing.T) {
	f := newRequestFixture(t)
	service := f.service()

	entries, err := service.ListUserPolicies(context.Background(), ownerActor, ownerID)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	f.holders.GetByUserIDFunc = func(ctx context.Context, userID string) (*models.Policyholder, error) {
		return &models.Policyholder{UserID: userID, Entries: []models.PolicyholderEntry{{PolicyID: policyID}}}, nil
	}
	entries, err = service.ListUserPolicies(context.Background(), adminActor, ownerID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = service.ListUserPolicies(context.Background(), otherActor, ownerID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
