package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager handles JWT session token generation and validation
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry is the lifetime of issued session tokens.
func (tm *TokenManager) Expiry() time.Duration {
	return tm.expiry
}

// GenerateSessionToken issues a signed token carrying the user's id, email and
// role. It returns the token and its expiry.
func (tm *TokenManager) GenerateSessionToken(user *models.User) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.expiry)

	claims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.ErrUnauthorized
	}
	if claims.Role != models.RoleUser && claims.Role != models.RoleAdmin {
		return nil, errors.Join(models.ErrUnauthorized, fmt.Errorf("unknown role %q", claims.Role))
	}

	return claims, nil
}
