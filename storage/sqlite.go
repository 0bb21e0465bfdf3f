// SQLite transcript storage.
//
// Information Hiding:
// - Connection management and schema hidden behind the interface
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/carelinq/datachat/llm"
)

// SqliteStore implements TranscriptStore using a SQLite database file.
// Each message is stored as one JSON row, ordered by message index.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (user_id, conversation_id)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			message TEXT NOT NULL,
			UNIQUE(user_id, conversation_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(user_id, conversation_id, message_index);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the transcript for a conversation.
func (s *SqliteStore) Load(ctx context.Context, userID, conversationID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM messages
		 WHERE user_id = ? AND conversation_id = ?
		 ORDER BY message_index`,
		userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	defer rows.Close()

	transcript := []llm.Message{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		var msg llm.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		transcript = append(transcript, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return transcript, nil
}

// Save replaces the transcript for a conversation in one transaction.
func (s *SqliteStore) Save(ctx context.Context, userID, conversationID string, transcript []llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (user_id, conversation_id) VALUES (?, ?)
		 ON CONFLICT(user_id, conversation_id)
		 DO UPDATE SET updated_at = datetime('now')`,
		userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ? AND conversation_id = ?`,
		userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}

	for i, msg := range transcript {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (user_id, conversation_id, message_index, message)
			 VALUES (?, ?, ?, ?)`,
			userID, conversationID, i, string(raw))
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}
	return nil
}

// Verify SqliteStore implements TranscriptStore
var _ TranscriptStore = (*SqliteStore)(nil)
