package ports

import (
	"context"

	"github.com/layer-3/keygate/core"
)

// UserRepository looks up registered users.
// FindByID returns core.ErrUserNotFound when no user has the given id.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*core.User, error)
}

// UserWriter registers users; used to seed a repository at startup
type UserWriter interface {
	Create(ctx context.Context, user *core.User) error
}
