package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, TokenKey, "jwt-abc", TokenTTL))

	got, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", got)
}

func TestMemoryStore_ExpiredEntriesArePruned(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, TokenKey, "jwt-abc", time.Hour))
	require.NoError(t, store.Set(ctx, RefreshTokenKey, "refresh", 0))

	now = now.Add(time.Hour)

	_, err := store.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh", got)
}

func TestMemoryStore_ClearKeepsReturnTo(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, TokenKey, "jwt", TokenTTL))
	require.NoError(t, store.Set(ctx, RefreshTokenKey, "refresh", 0))
	require.NoError(t, store.Set(ctx, ReturnToKey, "brands reorder", 0))

	require.NoError(t, store.Clear(ctx))

	_, err := store.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, RefreshTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := store.Get(ctx, ReturnToKey)
	require.NoError(t, err)
	assert.Equal(t, "brands reorder", got)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	ctx := context.Background()

	first := NewFileStore(path)
	require.NoError(t, first.Set(ctx, TokenKey, "jwt-abc", TokenTTL))
	require.NoError(t, first.Set(ctx, RefreshTokenKey, "refresh-xyz", 0))

	second := NewFileStore(path)
	got, err := second.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ReadsLatestValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	ctx := context.Background()

	reader := NewFileStore(path)
	writer := NewFileStore(path)

	require.NoError(t, writer.Set(ctx, TokenKey, "old", 0))
	got, err := reader.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "old", got)

	require.NoError(t, writer.Set(ctx, TokenKey, "new", 0))
	got, err = reader.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestFileStore_Expiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	store := NewFileStore(path)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, TokenKey, "jwt", TokenTTL))
	now = now.Add(TokenTTL + time.Second)

	_, err := store.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), TokenKey)
}

func TestFileStore_ClearAndDeleteMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	ctx := context.Background()
	store := NewFileStore(path)

	require.NoError(t, store.Delete(ctx, "never-set"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "deleting a missing key should not create the file")

	require.NoError(t, store.Set(ctx, TokenKey, "jwt", 0))
	require.NoError(t, store.Set(ctx, RefreshTokenKey, "refresh", 0))
	require.NoError(t, store.Clear(ctx))

	_, err = store.Get(ctx, RefreshTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml :::\n\t- ["), 0o600))

	_, err := NewFileStore(path).Get(context.Background(), TokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
