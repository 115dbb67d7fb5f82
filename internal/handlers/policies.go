package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

type PolicyServiceInterface interface {
	List(ctx context.Context) ([]*models.Policy, error)
	Get(ctx context.Context, id string) (*models.Policy, error)
	Create(ctx context.Context, actor models.Actor, in services.PolicyInput) (*models.Policy, error)
	Update(ctx context.Context, actor models.Actor, id string, in services.PolicyInput) (*models.Policy, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	ListPurchased(ctx context.Context, actor models.Actor) ([]*models.Policyholder, error)
}

// PolicyHandler serves the policy catalog.
type PolicyHandler struct {
	service PolicyServiceInterface
}

func NewPolicyHandler(service PolicyServiceInterface) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// List handles GET /policies, /users/policies and /admin/policies
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		resp = append(resp, toPolicyResponse(p))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /policies/{id}
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *PolicyHandler) input(w http.ResponseWriter, r *http.Request) (services.PolicyInput, bool) {
	var req PolicyRequestBody
	if !decodeAndValidate(w, r, &req) {
		return services.PolicyInput{}, false
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return services.PolicyInput{}, false
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return services.PolicyInput{}, false
	}

	in := services.PolicyInput{
		PolicyNumber:   req.PolicyNumber,
		Type:           req.Type,
		CoverageAmount: float64(req.CoverageAmount),
		StartDate:      start,
		EndDate:        end,
	}
	if req.Cost != nil {
		cost := float64(*req.Cost)
		in.Cost = &cost
	}
	return in, true
}

// Create handles POST /admin/policies
func (h *PolicyHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	policy, err := h.service.Create(r.Context(), auth.ActorFromRequest(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toPolicyResponse(policy))
}

// Update handles PUT /admin/policies/{id}
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	policy, err := h.service.Update(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

// Delete handles DELETE /admin/policies/{id}
func (h *PolicyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, "Policy deleted successfully.")
}

// ListPurchased handles GET /admin/purchased-policies
func (h *PolicyHandler) ListPurchased(w http.ResponseWriter, r *http.Request) {
	holders, err := h.service.ListPurchased(r.Context(), auth.ActorFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]PolicyholderResponse, 0, len(holders))
	for _, ph := range holders {
		resp = append(resp, PolicyholderResponse{
			UserID:   ph.UserID,
			UserName: ph.UserName,
			Policies: toHoldingResponses(ph.Entries),
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
