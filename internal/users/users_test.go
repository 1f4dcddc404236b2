package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/storage"
)

func TestEnsureRegistersOnce(t *testing.T) {
	repo := NewRepo(storage.NewMemory())
	ctx := context.Background()
	day1 := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	rec, created, err := repo.Ensure(ctx, 42, "mif", "Миф", day1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, rec.RegisteredAt.Equal(day1))

	rec, created, err = repo.Ensure(ctx, 42, "mif", "Миф", day1.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, rec.RegisteredAt.Equal(day1), "registration date must not move")
}

func TestEnsureUpdatesIdentity(t *testing.T) {
	repo := NewRepo(storage.NewMemory())
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	_, _, err := repo.Ensure(ctx, 42, "old", "Old", now)
	require.NoError(t, err)

	rec, _, err := repo.Ensure(ctx, 42, "new", "New", now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Username)
	assert.Equal(t, "New", rec.FirstName)

	got, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Username)
}

func TestGetUnknownUser(t *testing.T) {
	repo := NewRepo(storage.NewMemory())

	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListIDsSkipsForeignKeys(t *testing.T) {
	store := storage.NewMemory()
	repo := NewRepo(store)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []int64{1, 2, 7} {
		_, _, err := repo.Ensure(ctx, id, "", "", now)
		require.NoError(t, err)
	}
	require.NoError(t, store.Set(ctx, "user:1:events", []string{}))

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 7}, ids)
}

func TestProfileKeyRoundTrip(t *testing.T) {
	id, ok := UserIDFromProfileKey(ProfileKey(123456))
	require.True(t, ok)
	assert.Equal(t, int64(123456), id)

	_, ok = UserIDFromProfileKey("user:123:events")
	assert.False(t, ok)
}
