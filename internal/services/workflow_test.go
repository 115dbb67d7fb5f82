package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
)

type testApp struct {
	store    *memStore
	tm       *auth.TokenManager
	auth     *AuthService
	users    *UserService
	policies *PolicyService
	requests *PolicyRequestService
	claims   *ClaimService
}

func newTestApp() *testApp {
	store := newMemStore()
	users := memUsers{store}
	outbox := memOutbox{store}
	tm := auth.NewTokenManager(testJWTSecret, 2*time.Hour)
	logger, audit := NewTestLogger(), NewTestAuditLogger()

	return &testApp{
		store: store,
		tm:    tm,
		auth: NewAuthService(users, tm, nil, outbox, AuthSettings{
			AdminRegistrationKey: "let-me-in",
			ResetTokenExpiry:     time.Hour,
			FrontendURL:          "https://app.example.com",
			BcryptCost:           bcrypt.MinCost,
		}, logger, audit),
		users:    NewUserService(users, memHolders{store}, outbox, bcrypt.MinCost, logger, audit),
		policies: NewPolicyService(memPolicies{store}, memHolders{store}, outbox, logger, audit),
		requests: NewPolicyRequestService(memRequests{store}, users, memPolicies{store}, memHolders{store}, logger, audit),
		claims:   NewClaimService(memClaims{store}, memPolicies{store}, users, outbox, nil, logger, audit),
	}
}

// signIn logs in and returns the actor carried by the issued token.
func (a *testApp) signIn(t *testing.T, email, password string) models.Actor {
	t.Helper()
	result, err := a.auth.Login(context.Background(), email, password, "")
	require.NoError(t, err)
	claims, err := a.tm.ValidateToken(result.Token)
	require.NoError(t, err)
	return models.ActorFromClaims(claims)
}

func (a *testApp) admin(t *testing.T) models.Actor {
	t.Helper()
	_, err := a.auth.Register(context.Background(), RegisterInput{
		Name: "Root", Email: "root@example.com", Password: "rootpass", Role: models.RoleAdmin, AdminKey: "let-me-in",
	})
	require.NoError(t, err)
	return a.signIn(t, "root@example.com", "rootpass")
}

func (a *testApp) policy(t *testing.T, admin models.Actor, number string, coverage float64) *models.Policy {
	t.Helper()
	cost := 500.0
	p, err := a.policies.Create(context.Background(), admin, PolicyInput{
		PolicyNumber:   number,
		Type:           "Health",
		CoverageAmount: coverage,
		Cost:           &cost,
		StartDate:      date(t, "2025-01-01"),
		EndDate:        date(t, "2030-01-01"),
	})
	require.NoError(t, err)
	return p
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	app := newTestApp()
	admin := app.admin(t)

	userA, err := app.auth.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: models.RoleUser})
	require.NoError(t, err)
	actorA := app.signIn(t, "ada@example.com", "secret1")
	assert.Equal(t, userA.ID, actorA.UserID)

	policyX := app.policy(t, admin, "POL-X", 10000)

	start, end := date(t, "2025-01-01"), date(t, "2026-01-01")
	req, msg, err := app.requests.SubmitRequest(ctx, actorA, SubmitRequestInput{
		UserID: userA.ID, PolicyID: policyX.ID, StartDate: start, EndDate: end,
	})
	require.NoError(t, err)
	assert.Equal(t, "Your policy request has been submitted for admin approval.", msg)
	assert.Equal(t, models.StatusPending, req.Status)

	_, _, err = app.requests.SubmitRequest(ctx, actorA, SubmitRequestInput{
		UserID: userA.ID, PolicyID: policyX.ID, StartDate: start, EndDate: end,
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	pending, err := app.requests.ListPending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	msg, err = app.requests.Decide(ctx, admin, req.ID, models.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, "Policy purchase approved and assigned to user.", msg)

	holdings, err := app.requests.ListUserPolicies(ctx, actorA, userA.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, policyX.ID, holdings[0].PolicyID)
	assert.True(t, start.Equal(holdings[0].StartDate))
	assert.True(t, end.Equal(holdings[0].EndDate))

	for _, action := range []string{models.ActionApprove, models.ActionReject} {
		_, err = app.requests.Decide(ctx, admin, req.ID, action)
		assert.ErrorIs(t, err, models.ErrConflict)
	}

	assert.ErrorIs(t, app.policies.Delete(ctx, admin, policyX.ID), models.ErrConflict)
	assert.ErrorIs(t, app.users.DeleteUser(ctx, actorA, userA.ID), models.ErrConflict)

	claim, err := app.claims.FileClaim(ctx, actorA, FileClaimInput{
		UserID:      userA.ID,
		PolicyID:    policyX.ID,
		DocumentURL: "https://docs.example.com/claims/receipt.pdf",
		Amount:      8000,
		DateFiled:   date(t, "2025-06-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, claim.Status)

	decided, msg, err := app.claims.Decide(ctx, admin, claim.ID, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)
	assert.Equal(t, "Claim approved successfully!", msg)

	_, _, err = app.claims.Decide(ctx, admin, claim.ID, models.StatusRejected)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = app.claims.Cancel(ctx, actorA, claim.ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	var subjects []string
	for _, e := range EmailPayloads(app.store.tasks()) {
		subjects = append(subjects, e.Subject)
	}
	assert.Contains(t, subjects, "Policy Purchase Request APPROVED")
	assert.Contains(t, subjects, "Claim - Submission Received")
}

func TestWorkflow_PasswordResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	app := newTestApp()

	_, err := app.auth.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: models.RoleUser})
	require.NoError(t, err)

	require.NoError(t, app.auth.RequestPasswordReset(ctx, "ada@example.com"))

	var token string
	for _, e := range EmailPayloads(app.store.tasks()) {
		if e.Subject == "Password Reset Request" {
			idx := strings.Index(e.Body, "/reset-password/")
			require.GreaterOrEqual(t, idx, 0)
			token = strings.Fields(e.Body[idx+len("/reset-password/"):])[0]
		}
	}
	require.NotEmpty(t, token)

	require.NoError(t, app.auth.ResetPassword(ctx, token, "brandnew"))
	assert.ErrorIs(t, app.auth.ResetPassword(ctx, token, "another1"), models.ErrUnauthorized)

	_, err = app.auth.Login(ctx, "ada@example.com", "secret1", "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = app.auth.Login(ctx, "ada@example.com", "brandnew", "")
	assert.NoError(t, err)
}

func TestWorkflow_ConcurrentDecisionsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	app := newTestApp()
	admin := app.admin(t)

	user, err := app.auth.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: models.RoleUser})
	require.NoError(t, err)
	actor := models.Actor{UserID: user.ID, Role: models.RoleUser}
	policy := app.policy(t, admin, "POL-C", 5000)

	req, _, err := app.requests.SubmitRequest(ctx, actor, SubmitRequestInput{
		UserID: user.ID, PolicyID: policy.ID, StartDate: date(t, "2025-01-01"), EndDate: date(t, "2025-12-31"),
	})
	require.NoError(t, err)

	const deciders = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < deciders; i++ {
		action := models.ActionApprove
		if i%2 == 1 {
			action = models.ActionReject
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.requests.Decide(ctx, admin, req.ID, action)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, models.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, deciders-1, conflicts)

	count, err := memHolders{app.store}.CountEntriesByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, count, 1)
}

func TestWorkflow_RepeatedApprovalsAppendEntries(t *testing.T) {
	ctx := context.Background()
	app := newTestApp()
	admin := app.admin(t)

	user, err := app.auth.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: models.RoleUser})
	require.NoError(t, err)
	actor := models.Actor{UserID: user.ID, Role: models.RoleUser}
	policy := app.policy(t, admin, "POL-R", 5000)

	for _, window := range [][2]string{{"2025-01-01", "2025-12-31"}, {"2025-06-01", "2026-06-01"}} {
		req, _, err := app.requests.SubmitRequest(ctx, actor, SubmitRequestInput{
			UserID: user.ID, PolicyID: policy.ID, StartDate: date(t, window[0]), EndDate: date(t, window[1]),
		})
		require.NoError(t, err)
		_, err = app.requests.Decide(ctx, admin, req.ID, models.ActionApprove)
		require.NoError(t, err)
	}

	holdings, err := app.requests.ListUserPolicies(ctx, actor, user.ID)
	require.NoError(t, err)
	assert.Len(t, holdings, 2)
}

func TestWorkflow_PolicyDeleteOnlyWhenUnheld(t *testing.T) {
	ctx := context.Background()
	app := newTestApp()
	admin := app.admin(t)

	unheld := app.policy(t, admin, "POL-FREE", 1000)
	assert.NoError(t, app.policies.Delete(ctx, admin, unheld.ID))

	_, err := app.policies.Get(ctx, unheld.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
