package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmventures/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return s
}

func TestCreateGetUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "42", "alice")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFree, created.Status)
	assert.Empty(t, created.Watchlist)

	count := 1
	updated, err := s.Update(ctx, "42", store.UserUpdate{
		Watchlist:  []store.WatchlistEntry{store.NewWatchlistEntry("kinos", "usdc")},
		SwarmCount: &count,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SwarmCount)
	require.Len(t, updated.Watchlist, 1)
	assert.Equal(t, "kinos_USDC", updated.Watchlist[0].Key())

	// Partial update leaves the other columns alone.
	premium := store.StatusPremium
	updated, err = s.Update(ctx, "42", store.UserUpdate{Status: &premium})
	require.NoError(t, err)
	assert.Equal(t, store.StatusPremium, updated.Status)
	assert.Equal(t, 1, updated.SwarmCount)
	assert.Len(t, updated.Watchlist, 1)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUpdate_NotFound(t *testing.T) {
	s := openTestStore(t)

	count := 1
	_, err := s.Update(context.Background(), "missing", store.UserUpdate{SwarmCount: &count})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestAll_StatusFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "1", "a")
	require.NoError(t, err)
	_, err = s.Create(ctx, "2", "b")
	require.NoError(t, err)

	premium := store.StatusPremium
	_, err = s.Update(ctx, "2", store.UserUpdate{Status: &premium})
	require.NoError(t, err)

	all, err := s.All(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	premiums, err := s.All(ctx, store.StatusPremium)
	require.NoError(t, err)
	require.Len(t, premiums, 1)
	assert.Equal(t, "2", premiums[0].TelegramID)
}
