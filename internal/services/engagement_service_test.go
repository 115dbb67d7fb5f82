package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

type insightsFunc func(ctx context.Context) (*models.ProfileInsights, error)

func (f insightsFunc) Insights(ctx context.Context) (*models.ProfileInsights, error) { return f(ctx) }

func newTestEngagementService(outbox *MockOutbox, insights ProfileInsightsReader) *EngagementService {
	s := NewEngagementService(outbox, insights, NewTestLogger())
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestEngagementService_Track(t *testing.T) {
	outbox := &MockOutbox{}
	service := newTestEngagementService(outbox, nil)

	err := service.Track(context.Background(), ownerActor, TrackEventInput{
		EventType:  "policyViewed",
		TargetID:   "POL-1",
		Properties: map[string]any{"source": "catalog"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{models.TaskTrackEvent}, outbox.Kinds())
	var got models.EventPayload
	require.NoError(t, json.Unmarshal(outbox.Tasks[0].Payload, &got))
	assert.Equal(t, ownerID, got.ProfileID)
	assert.Equal(t, "session-"+ownerID, got.SessionID)
	assert.Equal(t, "policyViewed", got.EventType)
	assert.Equal(t, "POL-1", got.TargetID)
	assert.Equal(t, "catalog", got.Properties["source"])
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), got.OccurredAt)
}

func TestEngagementService_Track_Validation(t *testing.T) {
	tooMany := map[string]any{}
	for i := 0; i <= maxEventProperties; i++ {
		tooMany[strings.Repeat("k", i+1)] = i
	}

	tests := []struct {
		name    string
		actor   models.Actor
		in      TrackEventInput
		wantErr error
	}{
		{"anonymous", models.Actor{}, TrackEventInput{EventType: "login"}, models.ErrUnauthorized},
		{"missing type", ownerActor, TrackEventInput{}, models.ErrBadRequest},
		{"type with spaces", ownerActor, TrackEventInput{EventType: "policy viewed"}, models.ErrBadRequest},
		{"type starting with a digit", ownerActor, TrackEventInput{EventType: "1click"}, models.ErrBadRequest},
		{"type too long", ownerActor, TrackEventInput{EventType: "e" + strings.Repeat("x", 64)}, models.ErrBadRequest},
		{"too many properties", ownerActor, TrackEventInput{EventType: "login", Properties: tooMany}, models.ErrBadRequest},
		{"empty property name", ownerActor, TrackEventInput{EventType: "login", Properties: map[string]any{"": 1}}, models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbox := &MockOutbox{}
			err := newTestEngagementService(outbox, nil).Track(context.Background(), tt.actor, tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, outbox.Kinds())
		})
	}
}

func TestEngagementService_Track_EnqueueFailure(t *testing.T) {
	outbox := &MockOutbox{EnqueueFunc: func(ctx context.Context, tasks ...*models.OutboxTask) error {
		return errors.New("db down")
	}}

	err := newTestEngagementService(outbox, nil).Track(context.Background(), ownerActor, TrackEventInput{EventType: "login"})

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestEngagementService_Insights(t *testing.T) {
	want := &models.ProfileInsights{
		HoldingsByType: map[string]int{"Health": 2},
		ActiveProfiles: []models.ProfileActivity{{UserID: ownerID, Email: "ada@example.com", Facts: 3}},
	}
	reader := insightsFunc(func(ctx context.Context) (*models.ProfileInsights, error) { return want, nil })

	got, err := newTestEngagementService(&MockOutbox{}, reader).Insights(context.Background(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = newTestEngagementService(&MockOutbox{}, reader).Insights(context.Background(), ownerActor)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = newTestEngagementService(&MockOutbox{}, nil).Insights(context.Background(), adminActor)
	assert.ErrorIs(t, err, ErrInsightsDisabled)

	failing := insightsFunc(func(ctx context.Context) (*models.ProfileInsights, error) { return nil, errors.New("unomi down") })
	_, err = newTestEngagementService(&MockOutbox{}, failing).Insights(context.Background(), adminActor)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
