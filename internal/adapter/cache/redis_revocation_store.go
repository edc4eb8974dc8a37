package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gideon-Phiri/secure-auth-service/internal/token"
)

const revocationKeyPrefix = "revoked:"

// RedisRevocationStore implements token.RevocationList backed by Redis.
// Keys expire with the revoked token's remaining lifetime, so the list
// purges itself and stays shared across service instances.
type RedisRevocationStore struct {
	client redis.UniversalClient
}

var _ token.RevocationList = (*RedisRevocationStore)(nil)

// NewRedisRevocationStore constructs a Redis-backed revocation list.
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke marks the token ID invalid for the remainder of its lifetime.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revocationKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// IsRevoked reports revocation list membership.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if _, err := s.client.Get(ctx, revocationKeyPrefix+tokenID).Result(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("load revocation: %w", err)
	}
	return true, nil
}
