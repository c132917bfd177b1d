package database

import (
	"errors"
	"fmt"

	"discord-modbot/model"

	"go.uber.org/zap"
)

// ActionLog is the append-only moderation history.
type ActionLog interface {
	Append(entry model.ActionLogEntry) error
	Entries() ([]model.ActionLogEntry, error)
}

// WarnStore keeps each user's warnings in issue order.
type WarnStore interface {
	// Add appends a warning and returns the user's new total.
	Add(userID string, record model.WarnRecord) (int, error)
	Reset(userID string) error
	Count(userID string) (int, error)
	List(userID string) ([]model.WarnRecord, error)
}

// Store bundles the two durable documents of the bot.
type Store struct {
	Actions ActionLog
	Warns   WarnStore
	closeFn func() error
}

// Open opens the backend selected in the storage configuration.
func Open(cfg model.StorageConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", "json":
		return &Store{
			Actions: NewJSONActionLog(cfg.LogsFile, logger),
			Warns:   NewJSONWarnStore(cfg.WarnsFile, logger),
		}, nil
	case "sqlite":
		db, err := InitModerationDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlStore := NewSQLiteStore(db)
		return &Store{
			Actions: sqlStore,
			Warns:   sqlStore,
			closeFn: db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases the backend's resources.
func (s *Store) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// ErrEmptyUserID is returned when a warning operation has no user key.
var ErrEmptyUserID = errors.New("user id must not be empty")
