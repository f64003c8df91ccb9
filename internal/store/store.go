package store

// User accounts and the persistent store boundary. The watchlist is held
// as a JSON-encoded string column in the backing record store; it is
// parsed and validated here, never inside business logic.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status of a user's subscription.
type Status string

const (
	StatusFree    Status = "free"
	StatusPremium Status = "premium"
)

// ParseStatus validates a raw status value from the record store.
// Unknown or empty values default to free.
func ParseStatus(raw string) Status {
	if Status(raw) == StatusPremium {
		return StatusPremium
	}
	return StatusFree
}

var (
	// ErrUserNotFound means the telegram id has no account.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps transient I/O failures talking to the store.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// WatchlistEntry is a tracked swarm paired with the settlement token the
// user wants alerts denominated in.
type WatchlistEntry struct {
	Swarm string `json:"swarm"`
	Token string `json:"token"`
}

// NewWatchlistEntry normalizes the swarm slug to lowercase and the token
// symbol to uppercase.
func NewWatchlistEntry(swarmID, token string) WatchlistEntry {
	return WatchlistEntry{
		Swarm: strings.ToLower(strings.TrimSpace(swarmID)),
		Token: strings.ToUpper(strings.TrimSpace(token)),
	}
}

// Key returns the composite "{swarm}_{token}" form used for uniqueness
// and for the serialized column.
func (e WatchlistEntry) Key() string {
	return e.Swarm + "_" + e.Token
}

// parseWatchlistKey splits a stored "{swarm}_{token}" key. Entries without
// a token part keep the whole key as the swarm slug.
func parseWatchlistKey(key string) WatchlistEntry {
	if i := strings.LastIndex(key, "_"); i > 0 && i < len(key)-1 {
		return WatchlistEntry{Swarm: key[:i], Token: key[i+1:]}
	}
	return WatchlistEntry{Swarm: key}
}

// UserAccount is one row of the user store.
type UserAccount struct {
	TelegramID string
	Username   string
	Status     Status
	Watchlist  []WatchlistEntry
	SwarmCount int
}

// HasEntry reports whether key is already on the watchlist.
func (u *UserAccount) HasEntry(key string) bool {
	for _, e := range u.Watchlist {
		if e.Key() == key {
			return true
		}
	}
	return false
}

// UserUpdate is a partial update; nil fields are left untouched by the
// store so unrelated columns are never clobbered.
type UserUpdate struct {
	Status     *Status
	Watchlist  []WatchlistEntry // nil = unchanged, empty slice = cleared
	SwarmCount *int
}

// UserStore is the persistence boundary for user accounts. All methods
// block on I/O and honor ctx cancellation. Implementations must make
// Update atomic per account.
type UserStore interface {
	Get(ctx context.Context, telegramID string) (*UserAccount, error)
	Create(ctx context.Context, telegramID, username string) (*UserAccount, error)
	Update(ctx context.Context, telegramID string, update UserUpdate) (*UserAccount, error)
	All(ctx context.Context, statusFilter Status) ([]*UserAccount, error)
}

// EncodeWatchlist serializes entries to the JSON list-of-keys column form.
func EncodeWatchlist(entries []WatchlistEntry) (string, error) {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key())
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encode watchlist: %w", err)
	}
	return string(data), nil
}

// DecodeWatchlist parses the stored column. A corrupted value is treated
// as an empty watchlist; the caller decides whether to log it.
func DecodeWatchlist(raw string) ([]WatchlistEntry, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, false
	}
	entries := make([]WatchlistEntry, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		entries = append(entries, parseWatchlistKey(key))
	}
	return entries, true
}
