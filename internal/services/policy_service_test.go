package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

const policyID = "c0000000-0000-4000-8000-000000000003"

func validPolicyInput() PolicyInput {
	cost := 250.0
	return PolicyInput{
		PolicyNumber:   "POL-001",
		Type:           "Auto",
		CoverageAmount: 20000,
		Cost:           &cost,
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestPolicyService(repo *MockPolicyRepository, outbox *MockOutbox) *PolicyService {
	return NewPolicyService(repo, &MockPolicyholderRepository{}, outbox, NewTestLogger(), NewTestAuditLogger())
}

func TestPolicyService_Create(t *testing.T) {
	outbox := &MockOutbox{}
	repo := &MockPolicyRepository{
		CreateFunc: func(ctx context.Context, p *models.Policy) (*models.Policy, error) {
			created := *p
			created.ID = policyID
			return &created, nil
		},
	}
	service := newTestPolicyService(repo, outbox)

	in := validPolicyInput()
	in.PolicyNumber = "  POL-001 "
	policy, err := service.Create(context.Background(), adminActor, in)
	require.NoError(t, err)
	assert.Equal(t, "POL-001", policy.PolicyNumber)

	require.Len(t, outbox.Tasks, 1)
	assert.Equal(t, models.TaskRecordFact, outbox.Tasks[0].Kind)
	var fact models.FactPayload
	require.NoError(t, json.Unmarshal(outbox.Tasks[0].Payload, &fact))
	assert.Equal(t, "policy-"+policyID, fact.ItemID)
}

func TestPolicyService_Create_Validation(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name   string
		mutate func(*PolicyInput)
		msg    string
	}{
		{"missing number", func(in *PolicyInput) { in.PolicyNumber = " " }, "All fields are required."},
		{"missing dates", func(in *PolicyInput) { in.StartDate = time.Time{} }, "All fields are required."},
		{"zero coverage", func(in *PolicyInput) { in.CoverageAmount = 0 }, "Coverage amount must be a positive number."},
		{"negative coverage", func(in *PolicyInput) { in.CoverageAmount = -5 }, "Coverage amount must be a positive number."},
		{"nan coverage", func(in *PolicyInput) { in.CoverageAmount = math.NaN() }, "Coverage amount must be a positive number."},
		{"infinite coverage", func(in *PolicyInput) { in.CoverageAmount = math.Inf(1) }, "Coverage amount must be a positive number."},
		{"nan cost", func(in *PolicyInput) { nan := math.NaN(); in.Cost = &nan }, "Cost must be a positive number."},
		{"zero cost", func(in *PolicyInput) { in.Cost = &zero }, "Cost must be a positive number."},
		{"end before start", func(in *PolicyInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) }, "End date must be after start date."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestPolicyService(&MockPolicyRepository{}, &MockOutbox{})
			in := validPolicyInput()
			tt.mutate(&in)

			_, err := service.Create(context.Background(), adminActor, in)

			assert.ErrorIs(t, err, models.ErrBadRequest)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestPolicyService_Create_NilCostAllowed(t *testing.T) {
	repo := &MockPolicyRepository{
		CreateFunc: func(ctx context.Context, p *models.Policy) (*models.Policy, error) { return p, nil },
	}
	service := newTestPolicyService(repo, &MockOutbox{})
	in := validPolicyInput()
	in.Cost = nil

	_, err := service.Create(context.Background(), adminActor, in)

	assert.NoError(t, err)
}

func TestPolicyService_Create_RequiresAdmin(t *testing.T) {
	service := newTestPolicyService(&MockPolicyRepository{}, &MockOutbox{})

	_, err := service.Create(context.Background(), ownerActor, validPolicyInput())

	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPolicyService_Create_DuplicateNumber(t *testing.T) {
	repo := &MockPolicyRepository{
		CreateFunc: func(ctx context.Context, p *models.Policy) (*models.Policy, error) { return nil, models.ErrConflict },
	}
	service := newTestPolicyService(repo, &MockOutbox{})

	_, err := service.Create(context.Background(), adminActor, validPolicyInput())

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestPolicyService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
		msg     string
	}{
		{"unheld", nil, nil, ""},
		{"held", models.ErrConflict, models.ErrConflict, "Policy cannot be deleted. It is referenced by purchases or claims."},
		{"missing", models.ErrNotFound, models.ErrNotFound, "Policy not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockPolicyRepository{DeleteFunc: func(ctx context.Context, id string) error { return tt.repoErr }}
			service := newTestPolicyService(repo, &MockOutbox{})

			err := service.Delete(context.Background(), adminActor, policyID)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestPolicyService_Get_MalformedID(t *testing.T) {
	service := newTestPolicyService(&MockPolicyRepository{}, &MockOutbox{})

	_, err := service.Get(context.Background(), "not-a-uuid")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPolicyService_Update(t *testing.T) {
	outbox := &MockOutbox{}
	repo := &MockPolicyRepository{
		UpdateFunc: func(ctx context.Context, id string, p *models.Policy) (*models.Policy, error) {
			if id != policyID {
				return nil, models.ErrNotFound
			}
			updated := *p
			updated.ID = id
			return &updated, nil
		},
	}
	service := newTestPolicyService(repo, outbox)

	in := validPolicyInput()
	in.CoverageAmount = 30000
	policy, err := service.Update(context.Background(), adminActor, policyID, in)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, policy.CoverageAmount)
	require.Len(t, outbox.Tasks, 1)

	_, err = service.Update(context.Background(), adminActor, "c0000000-0000-4000-8000-0000000000ff", in)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = service.Update(context.Background(), adminActor, "not-a-uuid", in)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPolicyService_ListPurchased(t *testing.T) {
	holders := &MockPolicyholderRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.Policyholder, error) {
			return []*models.Policyholder{{ID: "h1", UserID: "u1", Entries: []models.PolicyholderEntry{{PolicyID: policyID}}}}, nil
		},
	}
	service := NewPolicyService(&MockPolicyRepository{}, holders, &MockOutbox{}, NewTestLogger(), NewTestAuditLogger())

	got, err := service.ListPurchased(context.Background(), adminActor)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, policyID, got[0].Entries[0].PolicyID)

	_, err = service.ListPurchased(context.Background(), models.Actor{UserID: "u1", Role: models.RoleUser})
	assert.ErrorIs(t, err, models.ErrForbidden)
}
