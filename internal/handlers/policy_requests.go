package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// PolicyRequestServiceInterface is the approval workflow as seen by HTTP.
type PolicyRequestServiceInterface interface {
	SubmitRequest(ctx context.Context, actor models.Actor, in services.SubmitRequestInput) (*models.PolicyRequest, string, error)
	Decide(ctx context.Context, actor models.Actor, requestID, action string) (string, error)
	ListPending(ctx context.Context, actor models.Actor) ([]*models.PolicyRequestDetail, error)
	ListUserPolicies(ctx context.Context, actor models.Actor, userID string) ([]models.PolicyholderEntry, error)
}

type PolicyRequestHandler struct {
	service PolicyRequestServiceInterface
}

func NewPolicyRequestHandler(service PolicyRequestServiceInterface) *PolicyRequestHandler {
	return &PolicyRequestHandler{service: service}
}

// BuyPolicy handles POST /users/buy-policy
func (h *PolicyRequestHandler) BuyPolicy(w http.ResponseWriter, r *http.Request) {
	var req BuyPolicyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	request, message, err := h.service.SubmitRequest(r.Context(), auth.ActorFromRequest(r), services.SubmitRequestInput{
		UserID:    req.UserID,
		PolicyID:  req.PolicyID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, struct {
		Message string                `json:"message"`
		Request PolicyRequestResponse `json:"request"`
	}{message, toPolicyRequestResponse(request)})
}

// MyPolicies handles GET /users/my-policies/{userId}
func (h *PolicyRequestHandler) MyPolicies(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListUserPolicies(r.Context(), auth.ActorFromRequest(r), urlParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toHoldingResponses(entries))
}

// PendingRequests handles GET /admin/pending-requests
func (h *PolicyRequestHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context(), auth.ActorFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]PolicyRequestResponse, 0, len(pending))
	for _, d := range pending {
		resp = append(resp, toPendingRequestResponse(d))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ApprovePolicy handles POST /admin/approve-policy
func (h *PolicyRequestHandler) ApprovePolicy(w http.ResponseWriter, r *http.Request) {
	var req DecideRequestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	message, err := h.service.Decide(r.Context(), auth.ActorFromRequest(r), req.RequestID, req.Action)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, message)
}
