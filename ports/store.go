package ports

import (
	"context"
	"time"
)

// Store records sessions whose access tokens must no longer be accepted
type Store interface {
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}
