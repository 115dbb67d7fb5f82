package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(user) > 1 {
		user = user[:1] + strings.Repeat("*", len(user)-1)
	}

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return user + "@" + strings.Join(labels, ".")
}

var sensitiveParams = []string{
	"password", "token", "secret", "api_key", "apikey", "email", "auth", "csrf", "key",
}

// SanitizeQueryString reports whether a raw query should be redacted from logs
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
