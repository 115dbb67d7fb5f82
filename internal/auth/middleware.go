package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/claimsdesk/internal/models"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
	// cookieAuthKey marks requests authenticated by the session cookie
	cookieAuthKey contextKey = "cookie_auth"
)

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // deny access when the denylist cannot be reached
}

// AuthMiddleware validates session tokens and injects claims into context.
// The token comes from the Authorization header or, failing that, the session cookie.
func AuthMiddleware(tm *TokenManager, revocationChecker TokenRevocationChecker, cfg RevocationConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, fromCookie, ok := extractToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Access denied. No token provided.")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token.")
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.Warn("token revocation check failed",
						slog.String("user_id", claims.UserID),
						slog.String("error", err.Error()))
					if cfg.FailClosed {
						pkghttp.WriteServiceUnavailable(w, "Unable to verify token status.")
						return
					}
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "Token has been revoked.")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			ctx = context.WithValue(ctx, cookieAuthKey, fromCookie)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (token string, fromCookie bool, ok bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(value) == "" {
			return "", false, false
		}
		return strings.TrimSpace(value), false, true
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true, true
	}
	return "", false, false
}

// RequireRole rejects requests whose session role differs from role.
// Must run after AuthMiddleware.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required.")
				return
			}

			if claims.Role != role {
				pkghttp.WriteForbidden(w, "Access denied. "+role+" role required.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// ActorFromRequest returns the authenticated actor, or the zero Actor.
func ActorFromRequest(r *http.Request) models.Actor {
	return models.ActorFromClaims(GetUserFromContext(r))
}

// AuthenticatedByCookie reports whether the session came from the cookie
// rather than an Authorization header.
func AuthenticatedByCookie(r *http.Request) bool {
	v, _ := r.Context().Value(cookieAuthKey).(bool)
	return v
}

// WithClaims returns a copy of ctx carrying claims, for tests and internal callers.
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
