package users

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/keygate/core"
)

const userKeyPrefix = "keygate:user:"

// RedisRepository stores each user as a hash under keygate:user:<id>
type RedisRepository struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisRepository creates a Redis-backed user repository
func NewRedisRepository(client redis.Cmdable) *RedisRepository {
	return &RedisRepository{
		client: client,
		prefix: userKeyPrefix,
		now:    time.Now,
	}
}

// FindByID loads the hash of the given user
func (r *RedisRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrUserNotFound
	}

	key, err := hexutil.Decode(fields["public_key"])
	if err != nil {
		return nil, fmt.Errorf("corrupt public key for user %s: %w", id, err)
	}

	user := &core.User{
		ID:        id,
		Email:     fields["email"],
		PublicKey: key,
	}
	if raw := fields["created_at"]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at for user %s: %w", id, err)
		}
		user.CreatedAt = createdAt
	}

	return user, nil
}

// Create stores a user unless one with the same ID exists
func (r *RedisRepository) Create(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC()
	}
	key := r.prefix + user.ID

	created, err := r.client.HSetNX(ctx, key, "public_key", hexutil.Encode(user.PublicKey)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", core.ErrUserExists, user.ID)
	}

	err = r.client.HSet(ctx, key,
		"email", user.Email,
		"created_at", user.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		// drop the half-written hash so the ID can be registered again
		if derr := r.client.Del(ctx, key).Err(); derr != nil {
			return fmt.Errorf("redis error: %w (cleanup failed: %v)", err, derr)
		}
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}
