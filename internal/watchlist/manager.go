package watchlist

// Watchlist membership rules and free-trial gating. Every mutation goes
// through here; the manager reads a fresh account immediately before each
// write and serializes operations per telegram id, so the free-trial
// counter cannot be raced past its limit by concurrent adds.

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/store"
)

// FreeTrialLimit is the number of distinct swarms a free user may ever add.
const FreeTrialLimit = 2

// ReasonFreeTrialLimit is the user-facing reason code on a rejected add.
const ReasonFreeTrialLimit = "FREE_TRIAL_LIMIT_REACHED"

// AddOutcome enumerates the results of an Add call. Limit rejection is an
// expected business outcome, not an error.
type AddOutcome int

const (
	Added AddOutcome = iota
	AlreadyPresent
	LimitReached
)

// AddResult reports what an Add did. SwarmsRemaining and FinalSlotWarning
// are only meaningful for free users on the Added outcome.
type AddResult struct {
	Outcome          AddOutcome
	Account          *store.UserAccount
	SwarmsRemaining  int
	FinalSlotWarning bool
	Reason           string
}

// RemoveOutcome enumerates the results of a Remove call.
type RemoveOutcome int

const (
	Removed RemoveOutcome = iota
	NotPresent
)

type RemoveResult struct {
	Outcome RemoveOutcome
	Account *store.UserAccount
}

// Manager mediates all watchlist mutations through a UserStore.
type Manager struct {
	users store.UserStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(users store.UserStore) *Manager {
	return &Manager{
		users: users,
		locks: make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing operations for one telegram id.
func (m *Manager) userLock(telegramID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[telegramID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[telegramID] = l
	}
	return l
}

// EnsureUser returns the existing account or creates a fresh free one.
// Repeat calls never overwrite the stored username.
func (m *Manager) EnsureUser(ctx context.Context, telegramID, username string) (*store.UserAccount, error) {
	l := m.userLock(telegramID)
	l.Lock()
	defer l.Unlock()
	return m.ensureUserLocked(ctx, telegramID, username)
}

func (m *Manager) ensureUserLocked(ctx context.Context, telegramID, username string) (*store.UserAccount, error) {
	account, err := m.users.Get(ctx, telegramID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	account, err = m.users.Create(ctx, telegramID, username)
	if err != nil {
		return nil, err
	}
	log.LogInfo("created user account",
		zap.String("telegramID", telegramID),
		zap.String("username", username))
	return account, nil
}

// Add puts the normalized "{swarm}_{token}" key on the user's watchlist.
// Duplicate adds are a no-op. Free users past FreeTrialLimit get a
// LimitReached result and no state change.
func (m *Manager) Add(ctx context.Context, telegramID, swarmID, token string) (AddResult, error) {
	l := m.userLock(telegramID)
	l.Lock()
	defer l.Unlock()

	account, err := m.ensureUserLocked(ctx, telegramID, "")
	if err != nil {
		return AddResult{}, err
	}

	entry := store.NewWatchlistEntry(swarmID, token)
	if account.HasEntry(entry.Key()) {
		return AddResult{Outcome: AlreadyPresent, Account: account}, nil
	}

	if account.Status == store.StatusFree && account.SwarmCount >= FreeTrialLimit {
		log.LogInfo("free trial limit reached",
			zap.String("telegramID", telegramID),
			zap.String("swarm", entry.Key()))
		return AddResult{
			Outcome: LimitReached,
			Account: account,
			Reason:  ReasonFreeTrialLimit,
		}, nil
	}

	newWatchlist := append(append([]store.WatchlistEntry{}, account.Watchlist...), entry)
	newCount := account.SwarmCount
	if account.Status == store.StatusFree {
		newCount++
	}

	// Watchlist and counter go in one update so the row never holds a
	// half-applied add.
	updated, err := m.users.Update(ctx, telegramID, store.UserUpdate{
		Watchlist:  newWatchlist,
		SwarmCount: &newCount,
	})
	if err != nil {
		return AddResult{}, err
	}

	result := AddResult{Outcome: Added, Account: updated}
	if updated.Status == store.StatusFree {
		result.SwarmsRemaining = FreeTrialLimit - updated.SwarmCount
		result.FinalSlotWarning = result.SwarmsRemaining == 0
	}
	return result, nil
}

// Remove takes the key off the watchlist. The free-trial counter is not
// decremented: removing and re-adding must not refund quota.
func (m *Manager) Remove(ctx context.Context, telegramID, swarmID, token string) (RemoveResult, error) {
	l := m.userLock(telegramID)
	l.Lock()
	defer l.Unlock()

	account, err := m.users.Get(ctx, telegramID)
	if err != nil {
		return RemoveResult{}, err
	}

	key := store.NewWatchlistEntry(swarmID, token).Key()
	newWatchlist := make([]store.WatchlistEntry, 0, len(account.Watchlist))
	found := false
	for _, e := range account.Watchlist {
		if e.Key() == key {
			found = true
			continue
		}
		newWatchlist = append(newWatchlist, e)
	}

	if !found {
		return RemoveResult{Outcome: NotPresent, Account: account}, nil
	}

	updated, err := m.users.Update(ctx, telegramID, store.UserUpdate{
		Watchlist: newWatchlist,
	})
	if err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Outcome: Removed, Account: updated}, nil
}

// UpgradeToPremium flips the user to premium. The payment itself is
// verified by the caller; a proof handed in here is trusted. Returns
// false when the user does not exist.
func (m *Manager) UpgradeToPremium(ctx context.Context, telegramID, paymentProof string) (bool, error) {
	l := m.userLock(telegramID)
	l.Lock()
	defer l.Unlock()

	if _, err := m.users.Get(ctx, telegramID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	premium := store.StatusPremium
	if _, err := m.users.Update(ctx, telegramID, store.UserUpdate{Status: &premium}); err != nil {
		return false, err
	}
	log.LogSuccess("user upgraded to premium",
		zap.String("telegramID", telegramID),
		zap.String("proof", paymentProof))
	return true, nil
}

// List returns the user's watchlist in insertion order. Absent users and
// empty watchlists both come back as an empty slice.
func (m *Manager) List(ctx context.Context, telegramID string) ([]store.WatchlistEntry, error) {
	account, err := m.users.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account.Watchlist, nil
}
