package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"discord-modbot/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// InitModerationDB initializes the moderation database and ensures the tables exist.
func InitModerationDB(dbPath string) (*sqlx.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to moderation database: %w", err)
	}
	// One writer keeps appends ordered.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS actions (
	          id INTEGER PRIMARY KEY AUTOINCREMENT,
	          action TEXT NOT NULL,
	          moderator TEXT NOT NULL,
	          target TEXT,
	          reason TEXT,
	          duration TEXT,
	          details TEXT,
	          timestamp INTEGER NOT NULL
	      );
	      CREATE TABLE IF NOT EXISTS warns (
	          id INTEGER PRIMARY KEY AUTOINCREMENT,
	          user_id TEXT NOT NULL,
	          reason TEXT NOT NULL,
	          timestamp INTEGER NOT NULL
	      );
	      CREATE INDEX IF NOT EXISTS idx_warns_user_id ON warns(user_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create moderation tables: %w", err)
	}

	return db, nil
}

// actionRow is an ActionLogEntry as stored in the actions table.
type actionRow struct {
	ID        int64   `db:"id"`
	Action    string  `db:"action"`
	Moderator string  `db:"moderator"`
	Target    *string `db:"target"`
	Reason    *string `db:"reason"`
	Duration  *string `db:"duration"`
	Details   *string `db:"details"`
	Timestamp int64   `db:"timestamp"`
}

type warnRow struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	Reason    string `db:"reason"`
	Timestamp int64  `db:"timestamp"`
}

// SQLiteStore implements ActionLog and WarnStore on one database.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(entry model.ActionLogEntry) error {
	row := actionRow{
		Action:    string(entry.Action),
		Moderator: entry.Moderator,
		Target:    entry.Target,
		Reason:    entry.Reason,
		Duration:  entry.Duration,
		Details:   entry.Details,
		Timestamp: entry.Timestamp.UnixNano(),
	}
	query := `INSERT INTO actions (action, moderator, target, reason, duration, details, timestamp)
			  VALUES (:action, :moderator, :target, :reason, :duration, :details, :timestamp)`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to insert action %s: %w", entry.Action, err)
	}
	return nil
}

func (s *SQLiteStore) Entries() ([]model.ActionLogEntry, error) {
	var rows []actionRow
	if err := s.db.Select(&rows, "SELECT * FROM actions ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to get actions: %w", err)
	}
	entries := make([]model.ActionLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.ActionLogEntry{
			Action:    model.ActionKind(r.Action),
			Moderator: r.Moderator,
			Target:    r.Target,
			Reason:    r.Reason,
			Duration:  r.Duration,
			Details:   r.Details,
			Timestamp: time.Unix(0, r.Timestamp).UTC(),
		})
	}
	return entries, nil
}

func (s *SQLiteStore) Add(userID string, record model.WarnRecord) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := warnRow{UserID: userID, Reason: record.Reason, Timestamp: record.Timestamp.UnixNano()}
	if _, err := tx.NamedExec(`INSERT INTO warns (user_id, reason, timestamp) VALUES (:user_id, :reason, :timestamp)`, row); err != nil {
		return 0, fmt.Errorf("failed to insert warning for user %s: %w", userID, err)
	}
	var count int
	if err := tx.Get(&count, "SELECT COUNT(*) FROM warns WHERE user_id = ?", userID); err != nil {
		return 0, fmt.Errorf("failed to count warnings for user %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit warning for user %s: %w", userID, err)
	}
	return count, nil
}

func (s *SQLiteStore) Reset(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if _, err := s.db.Exec("DELETE FROM warns WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to reset warnings for user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Count(userID string) (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM warns WHERE user_id = ?", userID); err != nil {
		return 0, fmt.Errorf("failed to count warnings for user %s: %w", userID, err)
	}
	return count, nil
}

func (s *SQLiteStore) List(userID string) ([]model.WarnRecord, error) {
	var rows []warnRow
	if err := s.db.Select(&rows, "SELECT * FROM warns WHERE user_id = ? ORDER BY id", userID); err != nil {
		return nil, fmt.Errorf("failed to get warnings for user %s: %w", userID, err)
	}
	records := make([]model.WarnRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, model.WarnRecord{Reason: r.Reason, Timestamp: time.Unix(0, r.Timestamp).UTC()})
	}
	return records, nil
}
