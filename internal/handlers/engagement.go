package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

type EngagementServiceInterface interface {
	Track(ctx context.Context, actor models.Actor, in services.TrackEventInput) error
	Insights(ctx context.Context, actor models.Actor) (*models.ProfileInsights, error)
}

// EngagementHandler handles event tracking and profile insights.
type EngagementHandler struct {
	service EngagementServiceInterface
}

func NewEngagementHandler(service EngagementServiceInterface) *EngagementHandler {
	return &EngagementHandler{service: service}
}

// Track handles POST /events/track
func (h *EngagementHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.Track(r.Context(), auth.ActorFromRequest(r), services.TrackEventInput{
		EventType:  req.EventType,
		SessionID:  req.SessionID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Properties: req.Properties,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusAccepted, "Event recorded.")
}

// Insights handles GET /admin/profile-insights
func (h *EngagementHandler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.service.Insights(r.Context(), auth.ActorFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toProfileInsightsResponse(insights))
}
