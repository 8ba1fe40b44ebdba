package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/ports"
)

// MemoryRepository keeps users in a map
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*core.User
	now   func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*core.User),
		now:   time.Now,
	}
}

// FindByID returns a copy of the stored user
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Create stores a user, assigning an ID and creation time when missing
func (r *MemoryRepository) Create(ctx context.Context, user *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	if _, exists := r.users[user.ID]; exists {
		return fmt.Errorf("%w: %s", core.ErrUserExists, user.ID)
	}
	for _, u := range r.users {
		if user.Email != "" && u.Email == user.Email {
			return fmt.Errorf("%w: %s", core.ErrUserExists, user.Email)
		}
	}

	r.users[user.ID] = cloneUser(user)
	return nil
}

// Len returns the number of stored users
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// SeedUser is one entry of a users seed file. The public key is 0x-prefixed hex.
type SeedUser struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	PublicKey hexutil.Bytes `json:"publicKey"`
}

// LoadFile reads a JSON array of SeedUser and creates each of them in w
func LoadFile(ctx context.Context, w ports.UserWriter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read users file: %w", err)
	}

	var seeds []SeedUser
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse users file: %w", err)
	}

	for i, s := range seeds {
		if len(s.PublicKey) == 0 {
			return i, fmt.Errorf("users file entry %d: public key is required", i)
		}
		u := &core.User{ID: s.ID, Email: s.Email, PublicKey: s.PublicKey}
		if err := w.Create(ctx, u); err != nil {
			return i, fmt.Errorf("users file entry %d: %w", i, err)
		}
	}

	return len(seeds), nil
}

func cloneUser(u *core.User) *core.User {
	c := *u
	c.PublicKey = append([]byte(nil), u.PublicKey...)
	return &c
}
