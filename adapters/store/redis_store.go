package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/ports"
)

const revokedPrefix = "keygate:revoked:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.Cmdable) ports.Store {
	return &RedisStore{
		client: client,
		prefix: revokedPrefix,
	}
}

// RevokeSession marks a session as revoked in Redis
func (s *RedisStore) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := s.prefix + sessionID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to revoke session: %v", core.ErrStoreOperationFailed, err)
	}

	return nil
}

// IsSessionRevoked checks if a session is revoked in Redis
func (s *RedisStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	key := s.prefix + sessionID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to check session revocation: %v", core.ErrStoreOperationFailed, err)
	}

	return val > 0, nil
}
