package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password, ipAddress string) (*services.LoginResult, error)
	Logout(ctx context.Context, claims *models.TokenClaims) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Register handles POST /users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		AdminKey: req.AdminKey,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /users/login. The token is returned in the body and
// also set as an httpOnly cookie alongside a readable CSRF cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		h.logger.Error("failed to generate csrf token", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	auth.SetSessionCookies(w, result.Token, csrfToken, result.ExpiresAt, h.cookies)

	pkghttp.WriteJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		LoginResponse
	}{
		Message: "Login successful",
		LoginResponse: LoginResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			UserID:    result.User.ID,
			Name:      result.User.Name,
			Email:     result.User.Email,
			Role:      result.User.Role,
		},
	})
}

// Logout handles POST /users/logout by revoking the session token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), auth.GetUserFromContext(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	auth.ClearSessionCookies(w, h.cookies)
	pkghttp.WriteMessage(w, http.StatusOK, "Logged out successfully.")
}

// ForgotPassword handles POST /users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Password reset link sent to email.")
}

// ResetPassword handles POST /users/reset-password. The token may come from
// the body or from the path of the emailed link.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token := req.Token
	if token == "" {
		token = urlParam(r, "token")
	}
	password := req.NewPassword
	if password == "" {
		password = req.Password
	}

	if err := h.service.ResetPassword(r.Context(), token, password); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Password reset successful. You can now log in.")
}
