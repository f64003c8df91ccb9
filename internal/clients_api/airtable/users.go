package airtable

// store.UserStore implemented on the Airtable Users table.

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/store"
)

const (
	fieldTelegramID = "telegram_id"
	fieldUsername   = "username"
	fieldStatus     = "status"
	fieldWatchlist  = "watchlist"
	fieldSwarmCount = "swarm_count"
)

// Get fetches a user account by telegram id.
func (c *Client) Get(ctx context.Context, telegramID string) (*store.UserAccount, error) {
	rec, err := c.findRecord(ctx, telegramID)
	if err != nil {
		return nil, wrapStoreErr("get user", err)
	}
	if rec == nil {
		return nil, store.ErrUserNotFound
	}
	return c.accountFromRecord(rec), nil
}

// Create inserts a fresh free account.
func (c *Client) Create(ctx context.Context, telegramID, username string) (*store.UserAccount, error) {
	payload := record{Fields: map[string]interface{}{
		fieldTelegramID: telegramID,
		fieldUsername:   username,
		fieldStatus:     string(store.StatusFree),
		fieldWatchlist:  "[]",
		fieldSwarmCount: 0,
	}}

	var created record
	if err := c.doJSON(ctx, "POST", c.tableURL(), payload, &created); err != nil {
		return nil, wrapStoreErr("create user", err)
	}
	return c.accountFromRecord(&created), nil
}

// Update patches only the provided fields of the user's record.
func (c *Client) Update(ctx context.Context, telegramID string, update store.UserUpdate) (*store.UserAccount, error) {
	rec, err := c.findRecord(ctx, telegramID)
	if err != nil {
		return nil, wrapStoreErr("update user", err)
	}
	if rec == nil {
		return nil, store.ErrUserNotFound
	}

	fields := map[string]interface{}{}
	if update.Status != nil {
		fields[fieldStatus] = string(*update.Status)
	}
	if update.Watchlist != nil {
		encoded, err := store.EncodeWatchlist(update.Watchlist)
		if err != nil {
			return nil, err
		}
		fields[fieldWatchlist] = encoded
	}
	if update.SwarmCount != nil {
		fields[fieldSwarmCount] = *update.SwarmCount
	}
	if len(fields) == 0 {
		return c.accountFromRecord(rec), nil
	}

	var patched record
	patchURL := c.tableURL() + "/" + rec.ID
	if err := c.doJSON(ctx, "PATCH", patchURL, record{Fields: fields}, &patched); err != nil {
		return nil, wrapStoreErr("update user", err)
	}
	return c.accountFromRecord(&patched), nil
}

// All lists every user, optionally filtered by status, following Airtable
// pagination.
func (c *Client) All(ctx context.Context, statusFilter store.Status) ([]*store.UserAccount, error) {
	var accounts []*store.UserAccount
	offset := ""
	for {
		u := c.tableURL()
		if offset != "" {
			u += "?offset=" + offset
		}
		var list recordList
		if err := c.doJSON(ctx, "GET", u, nil, &list); err != nil {
			return nil, wrapStoreErr("list users", err)
		}
		for i := range list.Records {
			account := c.accountFromRecord(&list.Records[i])
			if statusFilter != "" && account.Status != statusFilter {
				continue
			}
			accounts = append(accounts, account)
		}
		if list.Offset == "" {
			return accounts, nil
		}
		offset = list.Offset
	}
}

func (c *Client) accountFromRecord(rec *record) *store.UserAccount {
	account := &store.UserAccount{
		TelegramID: stringField(rec, fieldTelegramID),
		Username:   stringField(rec, fieldUsername),
		Status:     store.ParseStatus(stringField(rec, fieldStatus)),
		SwarmCount: intField(rec, fieldSwarmCount),
	}

	rawWatchlist := stringField(rec, fieldWatchlist)
	entries, ok := store.DecodeWatchlist(rawWatchlist)
	if !ok {
		// Recover locally: a corrupted column means an empty watchlist.
		log.LogWarn("corrupted watchlist column, treating as empty",
			zap.String("telegramID", account.TelegramID),
			zap.String("raw", rawWatchlist))
	}
	account.Watchlist = entries
	return account
}

func stringField(rec *record, key string) string {
	if v, ok := rec.Fields[key].(string); ok {
		return v
	}
	return ""
}

func intField(rec *record, key string) int {
	switch v := rec.Fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func wrapStoreErr(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, store.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
