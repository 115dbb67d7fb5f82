package models

import (
	"strings"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Name                string
	Role                string // RoleUser or RoleAdmin
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsAdmin reports whether the user carries the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName breaks a display name into first and last name for profile sync.
// A single-word name gets "Unknown" as last name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "Unknown"
	case 1:
		return parts[0], "Unknown"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
