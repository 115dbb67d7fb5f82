package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	GetUser(ctx context.Context, actor models.Actor, id string) (*models.User, error)
	ListUsers(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.User, error)
	UpdateProfile(ctx context.Context, actor models.Actor, id string, in services.UpdateProfileInput) (*models.User, error)
	DeleteUser(ctx context.Context, actor models.Actor, id string) error
}

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// ListUsers handles GET /admin/users?limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 100)
	offset := queryInt(r, "offset", 0, 0)

	users, err := h.service.ListUsers(r.Context(), auth.ActorFromRequest(r), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// UpdateUser handles PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id"), services.UpdateProfileInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser handles DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), auth.ActorFromRequest(r), urlParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, "User account and associated profiles permanently deleted.")
}
