package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// SQLiteStore persists transcripts to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite transcript store.
// The path should be a file path or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transcript (
			id              TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			seq             INTEGER NOT NULL,
			direction       TEXT NOT NULL,
			body            TEXT NOT NULL,
			payload         BLOB,
			timestamp       TEXT NOT NULL,
			PRIMARY KEY (conversation_id, seq)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements chatflow.TranscriptStore.
func (s *SQLiteStore) Append(ctx context.Context, conversationID string, msg chatflow.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var payload any
	if len(msg.Payload) > 0 {
		payload = []byte(msg.Payload)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript (id, conversation_id, seq, direction, body, payload, timestamp)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(seq) FROM transcript WHERE conversation_id = ?), 0) + 1,
			?, ?, ?, ?
		)
	`, msg.ID, conversationID, conversationID,
		string(msg.Direction), msg.Body, payload, msg.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, conversationID string) ([]chatflow.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, direction, body, payload, timestamp
		FROM transcript
		WHERE conversation_id = ?
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	msgs := make([]chatflow.Message, 0)
	for rows.Next() {
		var msg chatflow.Message
		var direction, ts string
		var payload []byte
		if err := rows.Scan(&msg.ID, &direction, &msg.Body, &payload, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ConversationID = conversationID
		msg.Direction = chatflow.Direction(direction)
		msg.Payload = payload
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg.Timestamp = parsed
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return msgs, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
