package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/integrations"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

type ClaimServiceInterface interface {
	FileClaim(ctx context.Context, actor models.Actor, in services.FileClaimInput) (*models.Claim, error)
	ListByUser(ctx context.Context, actor models.Actor, userID string) ([]*models.ClaimDetail, error)
	ListAll(ctx context.Context, actor models.Actor, statuses []string) ([]*models.ClaimDetail, error)
	Cancel(ctx context.Context, actor models.Actor, claimID string) (string, error)
	Decide(ctx context.Context, actor models.Actor, claimID, status string) (*models.Claim, string, error)
	PresignDocument(ctx context.Context, actor models.Actor, contentType string) (*integrations.DocumentUpload, error)
}

// ClaimHandler handles claim filing and adjudication.
type ClaimHandler struct {
	service ClaimServiceInterface
}

func NewClaimHandler(service ClaimServiceInterface) *ClaimHandler {
	return &ClaimHandler{service: service}
}

// File handles POST /claims
func (h *ClaimHandler) File(w http.ResponseWriter, r *http.Request) {
	var req FileClaimRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	filed, err := parseDate(req.DateFiled)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	claim, err := h.service.FileClaim(r.Context(), auth.ActorFromRequest(r), services.FileClaimInput{
		UserID:      req.UserID,
		PolicyID:    req.PolicyID,
		DocumentURL: req.Document,
		Amount:      float64(req.Amount),
		DateFiled:   filed,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toClaimResponse(claim))
}

// ListMine handles GET /claims
func (h *ClaimHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromRequest(r)
	h.list(w, r, actor, actor.UserID)
}

// ListByUser handles GET /claims/user/{userId}
func (h *ClaimHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, auth.ActorFromRequest(r), urlParam(r, "userId"))
}

func (h *ClaimHandler) list(w http.ResponseWriter, r *http.Request, actor models.Actor, userID string) {
	claims, err := h.service.ListByUser(r.Context(), actor, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toClaimDetailResponses(claims))
}

// ListAll handles GET /admin/claims?status=Pending,Approved
func (h *ClaimHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.ListAll(r.Context(), auth.ActorFromRequest(r), queryList(r, "status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toClaimDetailResponses(claims))
}

// Cancel handles DELETE /claims/{id}?userId=. A userId naming someone other
// than the caller is refused outright.
func (h *ClaimHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromRequest(r)
	if userID := r.URL.Query().Get("userId"); userID != "" && actor.UserID != "" && userID != actor.UserID {
		pkghttp.WriteForbidden(w, "Unauthorized action.")
		return
	}

	message, err := h.service.Cancel(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, message)
}

// UpdateStatus handles PUT /admin/claims/{id}/status
func (h *ClaimHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req ClaimStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	claim, message, err := h.service.Decide(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ClaimDecisionResponse{Message: message, Claim: toClaimResponse(claim)})
}

// PresignDocument handles POST /claims/documents
func (h *ClaimHandler) PresignDocument(w http.ResponseWriter, r *http.Request) {
	var req PresignDocumentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	upload, err := h.service.PresignDocument(r.Context(), auth.ActorFromRequest(r), req.ContentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, upload)
}
