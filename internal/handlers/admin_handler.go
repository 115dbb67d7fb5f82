package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// AdminServiceInterface defines the dashboard service contract.
type AdminServiceInterface interface {
	Analytics(ctx context.Context, actor models.Actor) (*models.Analytics, error)
}

// AdminHandler handles admin dashboard HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// Analytics handles GET /admin/analytics
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Analytics(r.Context(), auth.ActorFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AnalyticsResponse{
		UsersByRole:         stats.UsersByRole,
		TotalPolicies:       stats.TotalPolicies,
		RequestsByStatus:    stats.RequestsByStatus,
		ClaimsByStatus:      stats.ClaimsByStatus,
		ApprovedClaimAmount: stats.ApprovedClaimAmount,
	})
}
