package watchlist

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmventures/internal/store"
)

// memStore is an in-memory UserStore for exercising the manager.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*store.UserAccount
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]*store.UserAccount)}
}

func (s *memStore) Get(_ context.Context, telegramID string) (*store.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	a, ok := s.accounts[telegramID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *a
	cp.Watchlist = append([]store.WatchlistEntry{}, a.Watchlist...)
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, telegramID, username string) (*store.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[telegramID]; ok {
		cp := *a
		return &cp, nil
	}
	a := &store.UserAccount{TelegramID: telegramID, Username: username, Status: store.StatusFree}
	s.accounts[telegramID] = a
	cp := *a
	return &cp, nil
}

func (s *memStore) Update(_ context.Context, telegramID string, update store.UserUpdate) (*store.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[telegramID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if update.Status != nil {
		a.Status = *update.Status
	}
	if update.Watchlist != nil {
		a.Watchlist = append([]store.WatchlistEntry{}, update.Watchlist...)
	}
	if update.SwarmCount != nil {
		a.SwarmCount = *update.SwarmCount
	}
	cp := *a
	cp.Watchlist = append([]store.WatchlistEntry{}, a.Watchlist...)
	return &cp, nil
}

func (s *memStore) All(_ context.Context, statusFilter store.Status) ([]*store.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.UserAccount
	for _, a := range s.accounts {
		if statusFilter != "" && a.Status != statusFilter {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func TestEnsureUser_Idempotent(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	first, err := m.EnsureUser(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFree, first.Status)
	assert.Equal(t, "alice", first.Username)
	assert.Zero(t, first.SwarmCount)
	assert.Empty(t, first.Watchlist)

	// Repeat call with a different username must not overwrite.
	second, err := m.EnsureUser(ctx, "u1", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "alice", second.Username)
}

func TestAdd_FreeTrialBoundary(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	res, err := m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	assert.Equal(t, Added, res.Outcome)
	assert.Equal(t, 1, res.SwarmsRemaining)
	assert.False(t, res.FinalSlotWarning)

	res, err = m.Add(ctx, "u1", "xforge", "usdc")
	require.NoError(t, err)
	assert.Equal(t, Added, res.Outcome)
	assert.Equal(t, 0, res.SwarmsRemaining)
	assert.True(t, res.FinalSlotWarning)

	res, err = m.Add(ctx, "u1", "kinkong", "usdc")
	require.NoError(t, err)
	assert.Equal(t, LimitReached, res.Outcome)
	assert.Equal(t, ReasonFreeTrialLimit, res.Reason)
	// Rejected add must not mutate anything.
	assert.Equal(t, 2, res.Account.SwarmCount)
	assert.Len(t, res.Account.Watchlist, 2)
}

func TestAdd_KeyNormalization(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	res, err := m.Add(ctx, "u1", "KinOS", "usdc")
	require.NoError(t, err)
	require.Equal(t, Added, res.Outcome)
	assert.Equal(t, "kinos_USDC", res.Account.Watchlist[0].Key())
}

func TestAdd_Idempotent(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	first, err := m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	require.Equal(t, Added, first.Outcome)

	second, err := m.Add(ctx, "u1", "KINOS", "USDC")
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, second.Outcome)
	assert.Equal(t, first.Account.SwarmCount, second.Account.SwarmCount)
	assert.Equal(t, len(first.Account.Watchlist), len(second.Account.Watchlist))
}

func TestRemove_DoesNotRefundQuota(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	_, err := m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	_, err = m.Add(ctx, "u1", "xforge", "usdc")
	require.NoError(t, err)

	rm, err := m.Remove(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	assert.Equal(t, Removed, rm.Outcome)
	assert.Len(t, rm.Account.Watchlist, 1)
	assert.Equal(t, 2, rm.Account.SwarmCount)

	// Still at the historical limit while free.
	res, err := m.Add(ctx, "u1", "kinkong", "usdc")
	require.NoError(t, err)
	assert.Equal(t, LimitReached, res.Outcome)
}

func TestRemove_AbsentUserAndAbsentKey(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	_, err := m.Remove(ctx, "ghost", "kinos", "usdc")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)

	rm, err := m.Remove(ctx, "u1", "xforge", "usdc")
	require.NoError(t, err)
	assert.Equal(t, NotPresent, rm.Outcome)
	assert.Len(t, rm.Account.Watchlist, 1)
}

func TestUpgradeToPremium_BypassesLimit(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	_, err := m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	_, err = m.Add(ctx, "u1", "xforge", "usdc")
	require.NoError(t, err)

	res, err := m.Add(ctx, "u1", "kinkong", "usdc")
	require.NoError(t, err)
	require.Equal(t, LimitReached, res.Outcome)

	ok, err := m.UpgradeToPremium(ctx, "u1", "txsig123")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = m.Add(ctx, "u1", "kinkong", "usdc")
	require.NoError(t, err)
	assert.Equal(t, Added, res.Outcome)
	assert.Len(t, res.Account.Watchlist, 3)
}

func TestUpgradeToPremium_UserNotFound(t *testing.T) {
	m := NewManager(newMemStore())

	ok, err := m.UpgradeToPremium(context.Background(), "ghost", "txsig123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	entries, err := m.List(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = m.Add(ctx, "u1", "kinos", "usdc")
	require.NoError(t, err)
	_, err = m.Add(ctx, "u1", "xforge", "ubc")
	require.NoError(t, err)

	entries, err = m.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Insertion order preserved.
	assert.Equal(t, "kinos_USDC", entries[0].Key())
	assert.Equal(t, "xforge_UBC", entries[1].Key())
}

func TestAdd_ConcurrentSameUserHoldsInvariant(t *testing.T) {
	ms := newMemStore()
	m := NewManager(ms)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Add(ctx, "u1", fmt.Sprintf("swarm%d", i), "usdc")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	account, err := ms.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFree, account.Status)
	assert.Equal(t, FreeTrialLimit, account.SwarmCount)
	assert.Len(t, account.Watchlist, FreeTrialLimit)
}

func TestAdd_StoreError(t *testing.T) {
	ms := newMemStore()
	ms.getErr = store.ErrStoreUnavailable
	m := NewManager(ms)

	_, err := m.Add(context.Background(), "u1", "kinos", "usdc")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}
