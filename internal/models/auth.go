package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

// ActorFromClaims builds an Actor from verified session claims.
func ActorFromClaims(c *TokenClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// SystemActor is used by trusted internal callers such as the CLI.
func SystemActor() Actor {
	return Actor{UserID: "system", Role: RoleAdmin}
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// RequireRole fails with an authorization error unless the actor has role.
func (a Actor) RequireRole(role string) error {
	if a.UserID == "" {
		return NewAuthenticationError("Authentication required.")
	}
	if a.Role != role {
		return NewAuthorizationError("Access denied. %s role required.", role)
	}
	return nil
}

// RequireOwner fails unless the actor is the owner of the resource.
func (a Actor) RequireOwner(ownerID string) error {
	if a.UserID == "" {
		return NewAuthenticationError("Authentication required.")
	}
	if a.UserID != ownerID {
		return NewAuthorizationError("Unauthorized action.")
	}
	return nil
}

// RequireOwnerOrAdmin lets admins through in addition to the owner.
func (a Actor) RequireOwnerOrAdmin(ownerID string) error {
	if a.IsAdmin() && a.UserID != "" {
		return nil
	}
	return a.RequireOwner(ownerID)
}
