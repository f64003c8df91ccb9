package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmventures/internal/store"
)

// fakeAirtable is a tiny in-memory Users table speaking the subset of
// the Airtable REST API the client uses.
type fakeAirtable struct {
	t       *testing.T
	records map[string]map[string]interface{} // record id -> fields
	nextID  int
}

func newFakeAirtable(t *testing.T) *fakeAirtable {
	return &fakeAirtable{t: t, records: map[string]map[string]interface{}{}, nextID: 1}
}

func (f *fakeAirtable) handler(w http.ResponseWriter, r *http.Request) {
	require.Equal(f.t, "Bearer key123", r.Header.Get("Authorization"))

	switch {
	case r.Method == "GET":
		formula := r.URL.Query().Get("filterByFormula")
		var out []map[string]interface{}
		for id, fields := range f.records {
			if formula != "" {
				tid, _ := fields["telegram_id"].(string)
				if !strings.Contains(formula, "'"+tid+"'") {
					continue
				}
			}
			out = append(out, map[string]interface{}{"id": id, "fields": fields})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"records": out})

	case r.Method == "POST":
		var rec struct {
			Fields map[string]interface{} `json:"fields"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&rec))
		id := "rec" + string(rune('0'+f.nextID))
		f.nextID++
		f.records[id] = rec.Fields
		json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "fields": rec.Fields})

	case r.Method == "PATCH":
		parts := strings.Split(r.URL.Path, "/")
		id := parts[len(parts)-1]
		existing, ok := f.records[id]
		require.True(f.t, ok, "patch of unknown record %s", id)
		var rec struct {
			Fields map[string]interface{} `json:"fields"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&rec))
		for k, v := range rec.Fields {
			existing[k] = v
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "fields": existing})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeAirtable) {
	fake := newFakeAirtable(t)
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)
	return NewClient("key123", "base123", "Users", WithBaseURL(srv.URL)), fake
}

func TestCreateAndGet(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, "42", "alice")
	require.NoError(t, err)
	assert.Equal(t, "42", created.TelegramID)
	assert.Equal(t, store.StatusFree, created.Status)
	assert.Zero(t, created.SwarmCount)
	assert.Empty(t, created.Watchlist)

	got, err := c.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestGet_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUpdate_PartialFieldsDoNotClobber(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "42", "alice")
	require.NoError(t, err)

	count := 1
	updated, err := c.Update(ctx, "42", store.UserUpdate{
		Watchlist:  []store.WatchlistEntry{store.NewWatchlistEntry("kinos", "usdc")},
		SwarmCount: &count,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SwarmCount)
	require.Len(t, updated.Watchlist, 1)

	// A status-only update must leave watchlist and counter alone.
	premium := store.StatusPremium
	updated, err = c.Update(ctx, "42", store.UserUpdate{Status: &premium})
	require.NoError(t, err)
	assert.Equal(t, store.StatusPremium, updated.Status)
	assert.Equal(t, 1, updated.SwarmCount)
	assert.Len(t, updated.Watchlist, 1)
	assert.Equal(t, "alice", updated.Username)
}

func TestUpdate_UserNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	premium := store.StatusPremium
	_, err := c.Update(context.Background(), "missing", store.UserUpdate{Status: &premium})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestGet_CorruptedWatchlistRecoversAsEmpty(t *testing.T) {
	c, fake := newTestClient(t)
	fake.records["recX"] = map[string]interface{}{
		"telegram_id": "42",
		"username":    "alice",
		"status":      "premium",
		"watchlist":   "{definitely not json",
		"swarm_count": float64(2),
	}

	got, err := c.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, got.Watchlist)
	assert.Equal(t, 2, got.SwarmCount)
	assert.Equal(t, store.StatusPremium, got.Status)
}

func TestAll_StatusFilter(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "1", "a")
	require.NoError(t, err)
	_, err = c.Create(ctx, "2", "b")
	require.NoError(t, err)

	premium := store.StatusPremium
	_, err = c.Update(ctx, "2", store.UserUpdate{Status: &premium})
	require.NoError(t, err)

	all, err := c.All(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	premiums, err := c.All(ctx, store.StatusPremium)
	require.NoError(t, err)
	require.Len(t, premiums, 1)
	assert.Equal(t, "2", premiums[0].TelegramID)
}

func TestTransientFailureMapsToStoreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("key123", "base123", "Users", WithBaseURL(srv.URL))
	_, err := c.Get(context.Background(), "42")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}
