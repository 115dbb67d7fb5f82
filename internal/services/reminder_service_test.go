package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

func expiring(email string, end time.Time) *models.ExpiringEntry {
	return &models.ExpiringEntry{
		EntryID: "entry-" + email,
		EndDate: end,
		User:    models.UserSummary{ID: ownerID, Name: "Jane Doe", Email: email},
		Policy:  models.PolicySummary{ID: policyID, PolicyNumber: "POL-001", Type: "Auto", CoverageAmount: 20000},
	}
}

func TestReminderService_SendExpiryReminders(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var from, to time.Time
	holders := &MockPolicyholderRepository{
		ListExpiringFunc: func(ctx context.Context, f, tt time.Time) ([]*models.ExpiringEntry, error) {
			from, to = f, tt
			return []*models.ExpiringEntry{
				expiring("jane@example.com", now.AddDate(0, 0, 3)),
				expiring("", now.AddDate(0, 0, 4)),
			}, nil
		},
	}
	outbox := &MockOutbox{}
	service := NewReminderService(holders, outbox, NewTestLogger())
	service.now = func() time.Time { return now }

	n, err := service.SendExpiryReminders(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, now, from)
	assert.Equal(t, now.Add(DefaultReminderWindow), to)

	emails := outbox.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "jane@example.com", emails[0].To)
	assert.Contains(t, emails[0].Body, "2025-06-04")
	assert.NotEmpty(t, emails[0].Prompt)
}

func TestReminderService_NothingExpiring(t *testing.T) {
	outbox := &MockOutbox{}
	service := NewReminderService(&MockPolicyholderRepository{}, outbox, NewTestLogger())

	n, err := service.SendExpiryReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Empty(t, outbox.Tasks)
}

func TestReminderService_Errors(t *testing.T) {
	holders := &MockPolicyholderRepository{
		ListExpiringFunc: func(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error) {
			return []*models.ExpiringEntry{expiring("jane@example.com", to)}, nil
		},
	}
	outbox := &MockOutbox{EnqueueFunc: func(ctx context.Context, tasks ...*models.OutboxTask) error {
		return errors.New("db down")
	}}

	_, err := NewReminderService(holders, outbox, NewTestLogger()).SendExpiryReminders(context.Background(), time.Hour)
	assert.Error(t, err)

	failing := &MockPolicyholderRepository{
		ListExpiringFunc: func(ctx context.Context, from, to time.Time) ([]*models.ExpiringEntry, error) {
			return nil, errors.New("db down")
		},
	}
	_, err = NewReminderService(failing, &MockOutbox{}, NewTestLogger()).SendExpiryReminders(context.Background(), time.Hour)
	assert.Error(t, err)
}
