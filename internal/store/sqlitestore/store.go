package sqlitestore

// Local sqlite-backed user store for development and self-hosted runs.
// Same column shapes as the hosted record store, including the JSON
// watchlist column, so the two backends stay interchangeable.

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	log "swarmventures/internal/infra/log"
	"swarmventures/internal/store"
)

type userRow struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID string `gorm:"uniqueIndex;not null"`
	Username   string
	Status     string `gorm:"not null;default:free"`
	Watchlist  string `gorm:"not null;default:'[]'"`
	SwarmCount int    `gorm:"not null;default:0"`
}

func (userRow) TableName() string { return "users" }

type Store struct {
	db *gorm.DB
}

// Open creates (or migrates) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, telegramID string) (*store.UserAccount, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w: %v", store.ErrStoreUnavailable, err)
	}
	return accountFromRow(&row), nil
}

func (s *Store) Create(ctx context.Context, telegramID, username string) (*store.UserAccount, error) {
	row := userRow{
		TelegramID: telegramID,
		Username:   username,
		Status:     string(store.StatusFree),
		Watchlist:  "[]",
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create user: %w: %v", store.ErrStoreUnavailable, err)
	}
	return accountFromRow(&row), nil
}

func (s *Store) Update(ctx context.Context, telegramID string, update store.UserUpdate) (*store.UserAccount, error) {
	fields := map[string]interface{}{}
	if update.Status != nil {
		fields["status"] = string(*update.Status)
	}
	if update.Watchlist != nil {
		encoded, err := store.EncodeWatchlist(update.Watchlist)
		if err != nil {
			return nil, err
		}
		fields["watchlist"] = encoded
	}
	if update.SwarmCount != nil {
		fields["swarm_count"] = *update.SwarmCount
	}

	if len(fields) > 0 {
		res := s.db.WithContext(ctx).Model(&userRow{}).
			Where("telegram_id = ?", telegramID).
			Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update user: %w: %v", store.ErrStoreUnavailable, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrUserNotFound
		}
	}
	return s.Get(ctx, telegramID)
}

func (s *Store) All(ctx context.Context, statusFilter store.Status) ([]*store.UserAccount, error) {
	q := s.db.WithContext(ctx).Model(&userRow{})
	if statusFilter != "" {
		q = q.Where("status = ?", string(statusFilter))
	}
	var rows []userRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w: %v", store.ErrStoreUnavailable, err)
	}
	accounts := make([]*store.UserAccount, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, accountFromRow(&rows[i]))
	}
	return accounts, nil
}

func accountFromRow(row *userRow) *store.UserAccount {
	entries, ok := store.DecodeWatchlist(row.Watchlist)
	if !ok {
		log.LogWarn("corrupted watchlist column, treating as empty",
			zap.String("telegramID", row.TelegramID))
	}
	return &store.UserAccount{
		TelegramID: row.TelegramID,
		Username:   row.Username,
		Status:     store.ParseStatus(row.Status),
		Watchlist:  entries,
		SwarmCount: row.SwarmCount,
	}
}
