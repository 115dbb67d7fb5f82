package routes

import (
	"log/slog"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/handlers"
	"github.com/BradenHooton/claimsdesk/internal/middleware"
	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Users      *handlers.UserHandler
	Policies   *handlers.PolicyHandler
	Requests   *handlers.PolicyRequestHandler
	Claims     *handlers.ClaimHandler
	Admin      *handlers.AdminHandler
	Engagement *handlers.EngagementHandler
}

type Config struct {
	TokenManager   *auth.TokenManager
	Revocation     auth.TokenRevocationChecker // nil disables the denylist check
	RevocationMode auth.RevocationConfig
	AuthRateLimit  middleware.RateLimitConfig
	UserRateLimit  middleware.RateLimitConfig
	Logger         *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, cfg Config) {
	authLimit := middleware.RateLimitByIP(cfg.AuthRateLimit)

	router.Get("/health", h.Health.Health)

	// Public routes - no authentication required
	router.With(authLimit).Post("/users/register", h.Auth.Register)
	router.With(authLimit).Post("/users/login", h.Auth.Login)
	router.With(authLimit).Post("/users/forgot-password", h.Auth.ForgotPassword)
	router.With(authLimit).Post("/users/reset-password", h.Auth.ResetPassword)
	router.With(authLimit).Post("/users/reset-password/{token}", h.Auth.ResetPassword)
	router.Get("/users/policies", h.Policies.List)
	router.Get("/policies", h.Policies.List)
	router.Get("/policies/{id}", h.Policies.Get)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(cfg.TokenManager, cfg.Revocation, cfg.RevocationMode, cfg.Logger))
		r.Use(middleware.CSRFProtection(cfg.Logger))
		r.Use(middleware.RateLimitByUser(cfg.UserRateLimit))

		r.Post("/users/logout", h.Auth.Logout)
		r.Post("/users/buy-policy", h.Requests.BuyPolicy)
		r.Get("/users/my-policies/{userId}", h.Requests.MyPolicies)
		r.Get("/users/{id}", h.Users.GetUser)
		r.Put("/users/{id}", h.Users.UpdateUser)
		r.Delete("/users/{id}", h.Users.DeleteUser)
		r.Post("/events/track", h.Engagement.Track)

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", h.Claims.File)
			r.Get("/", h.Claims.ListMine)
			r.Post("/documents", h.Claims.PresignDocument)
			r.Get("/user/{userId}", h.Claims.ListByUser)
			r.Delete("/{id}", h.Claims.Cancel)
		})

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Get("/pending-requests", h.Requests.PendingRequests)
			r.Post("/approve-policy", h.Requests.ApprovePolicy)

			r.Get("/claims", h.Claims.ListAll)
			r.Put("/claims/{id}/status", h.Claims.UpdateStatus)

			r.Get("/policies", h.Policies.List)
			r.Post("/policies", h.Policies.Create)
			r.Put("/policies/{id}", h.Policies.Update)
			r.Delete("/policies/{id}", h.Policies.Delete)
			r.Get("/purchased-policies", h.Policies.ListPurchased)

			r.Get("/users", h.Users.ListUsers)
			r.Get("/analytics", h.Admin.Analytics)
			r.Get("/profile-insights", h.Engagement.Insights)
		})
	})
}
