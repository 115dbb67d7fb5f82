package routes_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/handlers"
	"github.com/BradenHooton/claimsdesk/internal/middleware"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/routes"
	"github.com/BradenHooton/claimsdesk/internal/services"
)

type alwaysUp struct{}

func (alwaysUp) HealthCheck(context.Context) error { return nil }

func newRouter(t *testing.T) (http.Handler, *auth.TokenManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := auth.NewTokenManager("routes-test-secret-long-enough-123", time.Hour)

	h := routes.Handlers{
		Health:   handlers.NewHealthHandler(alwaysUp{}, nil),
		Auth:     handlers.NewAuthHandler(&handlers.MockAuthService{}, auth.CookieConfig{}, nil, logger),
		Users:    handlers.NewUserHandler(&handlers.MockUserService{}),
		Policies: handlers.NewPolicyHandler(&handlers.MockPolicyService{}),
		Requests: handlers.NewPolicyRequestHandler(&handlers.MockPolicyRequestService{}),
		Claims:   handlers.NewClaimHandler(&handlers.MockClaimService{}),
		Admin: handlers.NewAdminHandler(&handlers.MockAdminService{
			AnalyticsFunc: func(ctx context.Context, actor models.Actor) (*models.Analytics, error) {
				return &models.Analytics{}, nil
			},
		}),
		Engagement: handlers.NewEngagementHandler(&handlers.MockEngagementService{
			TrackFunc: func(ctx context.Context, actor models.Actor, in services.TrackEventInput) error {
				return nil
			},
			InsightsFunc: func(ctx context.Context, actor models.Actor) (*models.ProfileInsights, error) {
				return &models.ProfileInsights{}, nil
			},
		}),
	}

	router := chi.NewRouter()
	routes.RegisterRoutes(router, h, routes.Config{
		TokenManager:  tm,
		AuthRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
		UserRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
		Logger:        logger,
	})
	return router, tm
}

func bearer(t *testing.T, tm *auth.TokenManager, role string) string {
	t.Helper()
	token, _, err := tm.GenerateSessionToken(&models.User{ID: "u-" + role, Email: role + "@example.com", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRoutes_Access(t *testing.T) {
	router, tm := newRouter(t)
	user := bearer(t, tm, models.RoleUser)
	admin := bearer(t, tm, models.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", "GET", "/health", "", http.StatusOK},
		{"catalog is public", "GET", "/policies", "", http.StatusOK},
		{"user catalog alias is public", "GET", "/users/policies", "", http.StatusOK},
		{"claims need a token", "GET", "/claims", "", http.StatusUnauthorized},
		{"user lists own claims", "GET", "/claims", user, http.StatusOK},
		{"holdings need a token", "GET", "/users/my-policies/u-User", "", http.StatusUnauthorized},
		{"admin area needs a token", "GET", "/admin/analytics", "", http.StatusUnauthorized},
		{"admin area rejects users", "GET", "/admin/analytics", user, http.StatusForbidden},
		{"admin sees analytics", "GET", "/admin/analytics", admin, http.StatusOK},
		{"admin lists pending requests", "GET", "/admin/pending-requests", admin, http.StatusOK},
		{"tracking needs a token", "POST", "/events/track", "", http.StatusUnauthorized},
		{"profile insights reject users", "GET", "/admin/profile-insights", user, http.StatusForbidden},
		{"admin sees profile insights", "GET", "/admin/profile-insights", admin, http.StatusOK},
		{"unknown route", "GET", "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoutes_CookieWritesNeedCSRF(t *testing.T) {
	router, tm := newRouter(t)
	token, _, err := tm.GenerateSessionToken(&models.User{ID: "u1", Email: "u1@example.com", Role: models.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("POST", "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: "csrf"})
	req.Header.Set(auth.CSRFHeaderName, "csrf")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
