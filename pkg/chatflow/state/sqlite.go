package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// SQLiteStore persists conversation state to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite state store.
// The path should be a file path (e.g., "./chatflow.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_state (
			conversation_id TEXT PRIMARY KEY,
			business_id     TEXT NOT NULL,
			phone_number    TEXT NOT NULL,
			bot_active      INTEGER NOT NULL DEFAULT 0,
			flow_id         TEXT,
			current_node_id TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversation_state_business
		ON conversation_state(business_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements chatflow.StateStore.
func (s *SQLiteStore) Get(ctx context.Context, conversationID string) (*chatflow.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, business_id, phone_number, bot_active, flow_id, current_node_id
		FROM conversation_state
		WHERE conversation_id = ?
	`, conversationID)

	var st chatflow.ConversationState
	var active int
	var flowID, nodeID sql.NullString
	err := row.Scan(&st.ConversationID, &st.BusinessID, &st.PhoneNumber, &active, &flowID, &nodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}

	st.BotActive = active != 0
	if flowID.Valid {
		st.FlowID = &flowID.String
	}
	if nodeID.Valid {
		st.CurrentNodeID = &nodeID.String
	}
	return &st, nil
}

// Put implements chatflow.StateStore.
func (s *SQLiteStore) Put(ctx context.Context, st *chatflow.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	active := 0
	if st.BotActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_state
			(conversation_id, business_id, phone_number, bot_active, flow_id, current_node_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			business_id = excluded.business_id,
			phone_number = excluded.phone_number,
			bot_active = excluded.bot_active,
			flow_id = excluded.flow_id,
			current_node_id = excluded.current_node_id
	`, st.ConversationID, st.BusinessID, st.PhoneNumber, active, nullable(st.FlowID), nullable(st.CurrentNodeID))
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// SetCursor implements chatflow.StateStore.
func (s *SQLiteStore) SetCursor(ctx context.Context, conversationID string, nodeID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversation_state SET current_node_id = ? WHERE conversation_id = ?
	`, nullable(nodeID), conversationID)
	if err != nil {
		return fmt.Errorf("update cursor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Toggle implements chatflow.StateStore.
func (s *SQLiteStore) Toggle(ctx context.Context, conversationID string, enabled bool, flowID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if enabled {
		// Upsert: enabling creates the conversation's state on first
		// contact, with the cursor unset. An existing row keeps its
		// business and phone identity.
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO conversation_state
				(conversation_id, business_id, phone_number, bot_active, flow_id, current_node_id)
			VALUES (?, '', '', 1, ?, NULL)
			ON CONFLICT(conversation_id) DO UPDATE SET
				bot_active = excluded.bot_active,
				flow_id = excluded.flow_id,
				current_node_id = NULL
		`, conversationID, nullable(flowID))
		if err != nil {
			return fmt.Errorf("toggle automation: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversation_state
		SET bot_active = 0, flow_id = ?, current_node_id = NULL
		WHERE conversation_id = ?
	`, nullable(flowID), conversationID)
	if err != nil {
		return fmt.Errorf("toggle automation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close implements chatflow.StateStore.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// nullable maps an optional string to its SQL representation.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
