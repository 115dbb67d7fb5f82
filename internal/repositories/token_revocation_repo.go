package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "claimsdesk:revoked:"

// TokenRevocationRepository keeps revoked session ids in Redis until the
// session would have expired anyway.
type TokenRevocationRepository struct {
	client *redis.Client
}

func NewTokenRevocationRepository(client *redis.Client) *TokenRevocationRepository {
	return &TokenRevocationRepository{client: client}
}

// RevokeToken adds a token id to the denylist
func (r *TokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, revokedKeyPrefix+jti, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks whether a token id is on the denylist
func (r *TokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}
