package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

var eventTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.:-]{0,63}$`)

const maxEventProperties = 32

// ErrInsightsDisabled is returned when no customer-data platform is configured.
var ErrInsightsDisabled = errors.New("profile insights are not configured")

// ProfileInsightsReader reads aggregates back from the customer-data platform.
type ProfileInsightsReader interface {
	Insights(ctx context.Context) (*models.ProfileInsights, error)
}

type TrackEventInput struct {
	EventType  string
	SessionID  string
	TargetType string
	TargetID   string
	Properties map[string]any
}

// EngagementService records behavioural events against the caller's profile
// and serves the admin view of synced profiles.
type EngagementService struct {
	outbox   OutboxEnqueuer
	insights ProfileInsightsReader
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngagementService creates an EngagementService. A nil insights reader
// makes Insights return ErrInsightsDisabled.
func NewEngagementService(outbox OutboxEnqueuer, insights ProfileInsightsReader, logger *slog.Logger) *EngagementService {
	return &EngagementService{
		outbox:   outbox,
		insights: insights,
		now:      time.Now,
		logger:   logger,
	}
}

// Track queues one event for delivery. Delivery is asynchronous, so a nil
// error means the event was recorded, not that the platform accepted it.
func (s *EngagementService) Track(ctx context.Context, actor models.Actor, in TrackEventInput) error {
	if actor.UserID == "" {
		return models.NewAuthenticationError("Authentication required.")
	}
	if !eventTypePattern.MatchString(in.EventType) {
		return models.NewValidationError("Event type must start with a letter and use only letters, digits, '.', ':', '_' or '-'.")
	}
	if len(in.Properties) > maxEventProperties {
		return models.NewValidationError("An event may carry at most %d properties.", maxEventProperties)
	}
	for key := range in.Properties {
		if key == "" {
			return models.NewValidationError("Event property names must not be empty.")
		}
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = "session-" + actor.UserID
	}

	batch := (&taskBatch{}).add(models.TaskTrackEvent, models.EventPayload{
		ProfileID:  actor.UserID,
		SessionID:  sessionID,
		EventType:  in.EventType,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Properties: in.Properties,
		OccurredAt: s.now().UTC(),
	})
	if batch.err == nil {
		batch.err = s.outbox.Enqueue(ctx, batch.tasks...)
	}
	if batch.err != nil {
		s.logger.Error("failed to queue event",
			slog.String("user_id", actor.UserID), slog.String("event_type", in.EventType), slog.Any("error", batch.err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *EngagementService) Insights(ctx context.Context, actor models.Actor) (*models.ProfileInsights, error) {
	if err := actor.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if s.insights == nil {
		return nil, ErrInsightsDisabled
	}

	insights, err := s.insights.Insights(ctx)
	if err != nil {
		s.logger.Error("failed to read profile insights", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return insights, nil
}
