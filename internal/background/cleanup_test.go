package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockPurger struct {
	olderThan time.Time
	err       error
}

func (m *mockPurger) PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error) {
	m.olderThan = olderThan
	return 3, m.err
}

type mockCleaner struct {
	calledAt time.Time
}

func (m *mockCleaner) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.calledAt = now
	return 1, nil
}

func TestCleanupManager_RunOnce(t *testing.T) {
	now := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	purger := &mockPurger{}
	cleaner := &mockCleaner{}
	cm := NewCleanupManager(purger, cleaner, 7*24*time.Hour, discardLogger(), time.Hour)
	cm.now = func() time.Time { return now }

	cm.RunOnce(context.Background())

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), purger.olderThan)
	assert.Equal(t, now, cleaner.calledAt)
}

func TestCleanupManager_ContinuesAfterPurgeFailure(t *testing.T) {
	cleaner := &mockCleaner{}
	cm := NewCleanupManager(&mockPurger{err: errors.New("db down")}, cleaner, time.Hour, discardLogger(), time.Hour)

	cm.RunOnce(context.Background())

	assert.False(t, cleaner.calledAt.IsZero())
}

func TestCleanupManager_Stop(t *testing.T) {
	cm := NewCleanupManager(&mockPurger{}, &mockCleaner{}, time.Hour, discardLogger(), time.Hour)
	done := make(chan struct{})

	go func() {
		cm.Start(context.Background())
		close(done)
	}()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}
