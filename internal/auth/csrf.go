package auth

import (
	"crypto/subtle"
	"net/http"

	pkgauth "github.com/BradenHooton/claimsdesk/pkg/auth"
)

// GenerateCSRFToken returns a random double-submit token.
func GenerateCSRFToken() (string, error) {
	return pkgauth.GenerateRandomToken(32)
}

// ValidCSRF reports whether the X-CSRF-Token header matches the CSRF cookie.
func ValidCSRF(r *http.Request) bool {
	header := r.Header.Get(CSRFHeaderName)
	if header == "" {
		return false
	}
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) == 1
}
