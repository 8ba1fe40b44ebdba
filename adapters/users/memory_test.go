package users

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/keygate/core"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	u := &core.User{ID: "u1", Email: "alice@example.com", PublicKey: []byte{1, 2, 3}}
	require.NoError(t, repo.Create(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, []byte{1, 2, 3}, got.PublicKey)

	// Callers cannot mutate stored keys
	got.PublicKey[0] = 9
	again, _ := repo.FindByID(ctx, "u1")
	assert.Equal(t, byte(1), again.PublicKey[0])

	err = repo.Create(ctx, &core.User{ID: "u1", PublicKey: []byte{4}})
	assert.ErrorIs(t, err, core.ErrUserExists)

	err = repo.Create(ctx, &core.User{Email: "alice@example.com", PublicKey: []byte{4}})
	assert.ErrorIs(t, err, core.ErrUserExists)

	anon := &core.User{Email: "bob@example.com", PublicKey: []byte{5}}
	require.NoError(t, repo.Create(ctx, anon))
	assert.NotEmpty(t, anon.ID)
	assert.Equal(t, 2, repo.Len())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	seed := `[
		{"id": "u1", "email": "alice@example.com", "publicKey": "0x0102"},
		{"email": "bob@example.com", "publicKey": "0xff"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	repo := NewMemoryRepository()
	n, err := LoadFile(context.Background(), repo, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, repo.Len())

	u, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, u.PublicKey)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := LoadFile(ctx, NewMemoryRepository(), filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "a list"}`), 0o600))
	_, err = LoadFile(ctx, NewMemoryRepository(), bad)
	assert.Error(t, err)

	nokey := filepath.Join(dir, "nokey.json")
	require.NoError(t, os.WriteFile(nokey, []byte(`[{"id": "u1"}]`), 0o600))
	_, err = LoadFile(ctx, NewMemoryRepository(), nokey)
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`[{"id": "u1", "publicKey": "0x01"}, {"id": "u1", "publicKey": "0x02"}]`), 0o600))
	n, err := LoadFile(ctx, NewMemoryRepository(), dup)
	assert.ErrorIs(t, err, core.ErrUserExists)
	assert.Equal(t, 1, n)
}
