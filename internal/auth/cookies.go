package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "token"
	CSRFCookieName    = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) cookie(name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if value == "" {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// SetSessionCookies writes the httpOnly session cookie and the readable CSRF
// cookie the client echoes back in X-CSRF-Token.
func SetSessionCookies(w http.ResponseWriter, token, csrfToken string, expires time.Time, config CookieConfig) {
	http.SetCookie(w, config.cookie(SessionCookieName, token, expires, true))
	http.SetCookie(w, config.cookie(CSRFCookieName, csrfToken, expires, false))
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(w http.ResponseWriter, config CookieConfig) {
	past := time.Unix(0, 0)
	http.SetCookie(w, config.cookie(SessionCookieName, "", past, true))
	http.SetCookie(w, config.cookie(CSRFCookieName, "", past, false))
}
