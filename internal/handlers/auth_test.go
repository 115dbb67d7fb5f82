package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/handlers"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
)

func newAuthHandler(svc handlers.AuthServiceInterface) *handlers.AuthHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handlers.NewAuthHandler(svc, auth.CookieConfig{SameSite: http.SameSiteLaxMode}, nil, logger)
}

func TestRegister_Success(t *testing.T) {
	var got services.RegisterInput
	svc := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			got = in
			return &models.User{ID: "u1", Name: in.Name, Email: in.Email, Role: models.RoleUser}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/users/register", map[string]string{
		"name": "Jane Doe", "email": "jane@example.com", "password": "secret1", "role": "User",
	})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Register(w, req)

	var resp handlers.UserResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "u1", resp.ID)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"validation", models.NewValidationError("Invalid email format."), http.StatusBadRequest, "bad_request", "Invalid email format."},
		{"duplicate", models.NewConflictError("User already exists."), http.StatusBadRequest, "conflict", "User already exists."},
		{"admin key", models.NewAuthorizationError("Invalid Admin registration key."), http.StatusForbidden, "forbidden", "Invalid Admin registration key."},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError, "internal_error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAuthService{
				RegisterFunc: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
					return nil, tt.err
				},
			}
			req := handlers.NewTestRequest(t, "POST", "/users/register", map[string]string{"email": "jane@example.com"})
			w := httptest.NewRecorder()

			newAuthHandler(svc).Register(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code, tt.msg)
		})
	}
}

func TestRegister_BadBody(t *testing.T) {
	req := handlers.NewTestRequest(t, "POST", "/users/register", `{"name":`)
	w := httptest.NewRecorder()

	newAuthHandler(&handlers.MockAuthService{}).Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request", "Invalid request body.")
}

func TestRegister_FieldTooLong(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	req := handlers.NewTestRequest(t, "POST", "/users/register", map[string]string{"name": string(long)})
	w := httptest.NewRecorder()

	newAuthHandler(&handlers.MockAuthService{}).Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request", "Name must have a maximum of 100 characters.")
}

func TestLogin_SetsCookies(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	svc := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ip string) (*services.LoginResult, error) {
			return &services.LoginResult{
				Token:     "jwt-token",
				ExpiresAt: expires,
				User:      &models.User{ID: "u1", Name: "Jane Doe", Email: email, Role: models.RoleUser},
			}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/users/login", map[string]string{"email": "jane@example.com", "password": "secret1"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Login(w, req)

	var resp struct {
		Message string `json:"message"`
		handlers.LoginResponse
	}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, "jwt-token", resp.Token)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, models.RoleUser, resp.Role)

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, auth.SessionCookieName)
	require.Contains(t, cookies, auth.CSRFCookieName)
	assert.Equal(t, "jwt-token", cookies[auth.SessionCookieName].Value)
	assert.True(t, cookies[auth.SessionCookieName].HttpOnly)
	assert.Len(t, cookies[auth.CSRFCookieName].Value, 64)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unknown user", models.NewNotFoundError("User not registered."), http.StatusNotFound, "User not registered."},
		{"bad password", models.NewAuthenticationError("Invalid email or password."), http.StatusUnauthorized, "Invalid email or password."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, email, password, ip string) (*services.LoginResult, error) {
					return nil, tt.err
				},
			}
			req := handlers.NewTestRequest(t, "POST", "/users/login", map[string]string{"email": "x@example.com", "password": "nope"})
			w := httptest.NewRecorder()

			newAuthHandler(svc).Login(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.msg)
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestLogout_ClearsCookies(t *testing.T) {
	var revoked *models.TokenClaims
	svc := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, claims *models.TokenClaims) error {
			revoked = claims
			return nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/users/logout", nil)
	req = handlers.WithAuthContext(req, "u1", models.RoleUser)
	w := httptest.NewRecorder()
	newAuthHandler(svc).Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, revoked)
	assert.Equal(t, "u1", revoked.UserID)
	for _, c := range w.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestForgotPassword(t *testing.T) {
	var asked string
	svc := &handlers.MockAuthService{
		RequestPasswordResetFunc: func(ctx context.Context, email string) error {
			asked = email
			if email == "ghost@example.com" {
				return models.NewNotFoundError("User not registered.")
			}
			return nil
		},
	}

	w := httptest.NewRecorder()
	newAuthHandler(svc).ForgotPassword(w, handlers.NewTestRequest(t, "POST", "/users/forgot-password", map[string]string{"email": "jane@example.com"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@example.com", asked)
	assert.Contains(t, w.Body.String(), "Password reset link sent to email.")

	w = httptest.NewRecorder()
	newAuthHandler(svc).ForgotPassword(w, handlers.NewTestRequest(t, "POST", "/users/forgot-password", map[string]string{"email": "ghost@example.com"}))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found", "User not registered.")
}

func TestResetPassword_TokenSources(t *testing.T) {
	var gotToken, gotPassword string
	svc := &handlers.MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, token, pw string) error {
			gotToken, gotPassword = token, pw
			return nil
		},
	}
	h := newAuthHandler(svc)

	w := httptest.NewRecorder()
	h.ResetPassword(w, handlers.NewTestRequest(t, "POST", "/users/reset-password", map[string]string{"token": "abc", "newPassword": "newpass1"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", gotToken)
	assert.Equal(t, "newpass1", gotPassword)

	req := handlers.NewTestRequest(t, "POST", "/users/reset-password/def", map[string]string{"password": "newpass2"})
	req = handlers.WithURLParams(req, "token", "def")
	w = httptest.NewRecorder()
	h.ResetPassword(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "def", gotToken)
	assert.Equal(t, "newpass2", gotPassword)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc := &handlers.MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, token, pw string) error {
			return models.NewAuthenticationError("Invalid or expired reset token.")
		},
	}
	w := httptest.NewRecorder()

	newAuthHandler(svc).ResetPassword(w, handlers.NewTestRequest(t, "POST", "/users/reset-password", map[string]string{"token": "used", "newPassword": "x"}))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized", "Invalid or expired reset token.")
}
