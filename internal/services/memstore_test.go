package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

// memStore is an in-memory stand-in for the Postgres repositories. Each
// conditional write holds the lock for its whole check-and-set, mirroring the
// single-statement updates of the real repositories.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	policies map[string]*models.Policy
	requests map[string]*models.PolicyRequest
	holders  map[string]*models.Policyholder
	claims   map[string]*models.Claim
	outbox   []*models.OutboxTask
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		policies: map[string]*models.Policy{},
		requests: map[string]*models.PolicyRequest{},
		holders:  map[string]*models.Policyholder{},
		claims:   map[string]*models.Claim{},
	}
}

type (
	memUsers    struct{ s *memStore }
	memPolicies struct{ s *memStore }
	memRequests struct{ s *memStore }
	memHolders  struct{ s *memStore }
	memClaims   struct{ s *memStore }
	memOutbox   struct{ s *memStore }
)

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m memUsers) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		out = append(out, u)
	}
	return out, nil
}

func (m memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return nil, models.ErrConflict
		}
	}
	c := *user
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	m.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (m memUsers) Update(_ context.Context, id string, user *models.User) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.Name, u.Email, u.PasswordHash = user.Name, user.Email, user.PasswordHash
	c := *u
	return &c, nil
}

func (m memUsers) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.s.users, id)
	return nil
}

func (m memUsers) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.ResetTokenHash, u.ResetTokenExpiresAt = &tokenHash, &expiresAt
	return nil
}

func (m memUsers) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash && u.ResetTokenExpiresAt.After(now) {
			u.PasswordHash = passwordHash
			u.ResetTokenHash, u.ResetTokenExpiresAt = nil, nil
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m memPolicies) GetByID(_ context.Context, id string) (*models.Policy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.policies[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (m memPolicies) List(_ context.Context) ([]*models.Policy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.Policy, 0, len(m.s.policies))
	for _, p := range m.s.policies {
		out = append(out, p)
	}
	return out, nil
}

func (m memPolicies) Create(_ context.Context, p *models.Policy) (*models.Policy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.policies {
		if existing.PolicyNumber == p.PolicyNumber {
			return nil, models.ErrConflict
		}
	}
	c := *p
	c.ID = uuid.New().String()
	m.s.policies[c.ID] = &c
	out := c
	return &out, nil
}

func (m memPolicies) Update(_ context.Context, id string, p *models.Policy) (*models.Policy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.policies[id]; !ok {
		return nil, models.ErrNotFound
	}
	c := *p
	c.ID = id
	m.s.policies[id] = &c
	out := c
	return &out, nil
}

func (m memPolicies) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.policies[id]; !ok {
		return models.ErrNotFound
	}
	for _, h := range m.s.holders {
		for _, e := range h.Entries {
			if e.PolicyID == id {
				return models.ErrConflict
			}
		}
	}
	delete(m.s.policies, id)
	return nil
}

func (m memRequests) Create(_ context.Context, req *models.PolicyRequest, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.requests {
		if r.UserID == req.UserID && r.PolicyID == req.PolicyID && r.IsPending() {
			return nil, models.ErrConflict
		}
	}
	c := *req
	c.ID = uuid.New().String()
	c.Status = models.StatusPending
	c.RequestedAt = time.Now()
	m.s.requests[c.ID] = &c
	m.s.outbox = append(m.s.outbox, tasks...)
	out := c
	return &out, nil
}

func (m memRequests) GetByID(_ context.Context, id string) (*models.PolicyRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.requests[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (m memRequests) ListByStatus(_ context.Context, status string) ([]*models.PolicyRequestDetail, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.PolicyRequestDetail, 0)
	for _, r := range m.s.requests {
		if r.Status == status {
			out = append(out, &models.PolicyRequestDetail{PolicyRequest: *r})
		}
	}
	return out, nil
}

// decide must be called with the lock held.
func (m memRequests) decide(id, status, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	r, ok := m.s.requests[id]
	if !ok || !r.IsPending() {
		return nil, models.ErrConflict
	}
	now := time.Now()
	r.Status, r.DecidedAt, r.DecidedBy = status, &now, &decidedBy
	m.s.outbox = append(m.s.outbox, tasks...)
	c := *r
	return &c, nil
}

func (m memRequests) Approve(_ context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, err := m.decide(id, models.StatusApproved, decidedBy, tasks)
	if err != nil {
		return nil, err
	}
	h, ok := m.s.holders[r.UserID]
	if !ok {
		h = &models.Policyholder{ID: uuid.New().String(), UserID: r.UserID, PurchaseDate: time.Now()}
		m.s.holders[r.UserID] = h
	}
	p := m.s.policies[r.PolicyID]
	reqID := r.ID
	h.Entries = append(h.Entries, models.PolicyholderEntry{
		ID:        uuid.New().String(),
		PolicyID:  r.PolicyID,
		RequestID: &reqID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: time.Now(),
		Policy:    p.Summary(),
	})
	return r, nil
}

func (m memRequests) Reject(_ context.Context, id, decidedBy string, tasks []*models.OutboxTask) (*models.PolicyRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.decide(id, models.StatusRejected, decidedBy, tasks)
}

func (m memHolders) GetByUserID(_ context.Context, userID string) (*models.Policyholder, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	h, ok := m.s.holders[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *h
	c.Entries = append([]models.PolicyholderEntry(nil), h.Entries...)
	return &c, nil
}

func (m memHolders) ListAll(_ context.Context) ([]*models.Policyholder, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.Policyholder, 0, len(m.s.holders))
	for _, h := range m.s.holders {
		out = append(out, h)
	}
	return out, nil
}

func (m memHolders) CountEntriesByUser(_ context.Context, userID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if h, ok := m.s.holders[userID]; ok {
		return len(h.Entries), nil
	}
	return 0, nil
}

func (m memHolders) ListExpiring(_ context.Context, from, to time.Time) ([]*models.ExpiringEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.ExpiringEntry, 0)
	for _, h := range m.s.holders {
		u := m.s.users[h.UserID]
		for _, e := range h.Entries {
			if !e.EndDate.Before(from) && !e.EndDate.After(to) {
				out = append(out, &models.ExpiringEntry{
					EntryID: e.ID,
					EndDate: e.EndDate,
					User:    models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email},
					Policy:  e.Policy,
				})
			}
		}
	}
	return out, nil
}

func (m memClaims) Create(_ context.Context, c *models.Claim) (*models.Claim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[c.UserID]; !ok {
		return nil, models.ErrBadRequest
	}
	cl := *c
	cl.ID = uuid.New().String()
	cl.Status = models.StatusPending
	cl.CreatedAt = time.Now()
	m.s.claims[cl.ID] = &cl
	out := cl
	return &out, nil
}

func (m memClaims) GetByID(_ context.Context, id string) (*models.Claim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.claims[id]; ok {
		cl := *c
		return &cl, nil
	}
	return nil, models.ErrNotFound
}

func (m memClaims) list(match func(*models.Claim) bool) []*models.ClaimDetail {
	out := make([]*models.ClaimDetail, 0)
	for _, c := range m.s.claims {
		if match(c) {
			out = append(out, &models.ClaimDetail{Claim: *c, Policy: m.s.policies[c.PolicyID].Summary()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m memClaims) ListByUser(_ context.Context, userID string) ([]*models.ClaimDetail, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(c *models.Claim) bool { return c.UserID == userID }), nil
}

func (m memClaims) List(_ context.Context, statuses []string) ([]*models.ClaimDetail, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(c *models.Claim) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (m memClaims) DeletePending(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return models.ErrNotFound
	}
	if !c.IsPending() {
		return models.ErrConflict
	}
	delete(m.s.claims, id)
	return nil
}

func (m memClaims) UpdateStatus(_ context.Context, id, status, decidedBy string, tasks []*models.OutboxTask) (*models.Claim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok || !c.IsPending() {
		return nil, models.ErrConflict
	}
	now := time.Now()
	c.Status, c.DecidedAt, c.DecidedBy = status, &now, &decidedBy
	m.s.outbox = append(m.s.outbox, tasks...)
	out := *c
	return &out, nil
}

func (m memOutbox) Enqueue(_ context.Context, tasks ...*models.OutboxTask) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.outbox = append(m.s.outbox, tasks...)
	return nil
}

func (s *memStore) tasks() []*models.OutboxTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.OutboxTask(nil), s.outbox...)
}
