package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a MessageLog backed by sqlite. The default path ":memory:" keeps
// the log for the lifetime of the process only.
type Store struct {
	db *sql.DB
}

func OpenSQLite(path string) (*Store, error) {
	if !isMemoryPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes appends and keeps an in-memory database alive.
	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(0)
	database.SetConnMaxIdleTime(0)

	store := &Store{db: database}
	if err := store.migrate(context.Background()); err != nil {
		database.Close()
		return nil, err
	}
	return store, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS messages (
  chat_id INTEGER NOT NULL,
  id INTEGER NOT NULL,
  sender TEXT NOT NULL,
  kind TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  PRIMARY KEY (chat_id, id)
);
`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, msg Message) (Message, error) {
	if err := validate(msg); err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var maxID int64
		if err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(id), 0)
FROM messages
WHERE chat_id = ?`, msg.ChatID).Scan(&maxID); err != nil {
			return fmt.Errorf("next message id: %w", err)
		}
		msg.ID = maxID + 1
		return InsertMessageTx(ctx, tx, msg)
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (s *Store) List(ctx context.Context, chatID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT chat_id, id, sender, kind, body, created_at
FROM messages
WHERE chat_id = ?
ORDER BY id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			msg    Message
			sender string
			kind   string
		)
		if err := rows.Scan(&msg.ChatID, &msg.ID, &sender, &kind, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = Sender(sender)
		msg.Kind = Kind(kind)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func InsertMessageTx(ctx context.Context, tx *sql.Tx, msg Message) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO messages (chat_id, id, sender, kind, body, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, msg.ChatID, msg.ID, string(msg.Sender), string(msg.Kind), msg.Body, msg.CreatedAt.UTC().Truncate(time.Microsecond))
	if err != nil {
		return fmt.Errorf("insert message tx: %w", err)
	}
	return nil
}
