package middleware

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// CSRFProtection enforces the double-submit token on state-changing requests
// that were authenticated by the session cookie. Bearer-token callers are not
// exposed to cross-site forgery and pass through.
// Must run after auth.AuthMiddleware.
func CSRFProtection(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) || !auth.AuthenticatedByCookie(r) {
				next.ServeHTTP(w, r)
				return
			}

			if !auth.ValidCSRF(r) {
				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if claims := auth.GetUserFromContext(r); claims != nil {
					attrs = append(attrs, slog.String("user_id", claims.UserID))
				}
				logger.Warn("CSRF token validation failed", attrs...)
				pkghttp.WriteForbidden(w, "Invalid CSRF token.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
