package state

import (
	"context"
	"sync"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// MemoryStore is an in-memory state store for tests and single-process use.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]*chatflow.ConversationState
	closed bool
}

// NewMemoryStore creates a new in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*chatflow.ConversationState),
	}
}

// Get implements chatflow.StateStore.
func (m *MemoryStore) Get(_ context.Context, conversationID string) (*chatflow.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	st, ok := m.data[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy so callers cannot mutate stored state in place.
	out := *st
	return &out, nil
}

// Put implements chatflow.StateStore.
func (m *MemoryStore) Put(_ context.Context, st *chatflow.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := *st
	m.data[st.ConversationID] = &stored
	return nil
}

// SetCursor implements chatflow.StateStore.
func (m *MemoryStore) SetCursor(_ context.Context, conversationID string, nodeID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	st, ok := m.data[conversationID]
	if !ok {
		return ErrNotFound
	}

	if nodeID == nil {
		st.CurrentNodeID = nil
	} else {
		id := *nodeID
		st.CurrentNodeID = &id
	}
	return nil
}

// Toggle implements chatflow.StateStore.
func (m *MemoryStore) Toggle(_ context.Context, conversationID string, enabled bool, flowID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	st, ok := m.data[conversationID]
	if !ok {
		// Enabling creates the conversation's state on first contact.
		// Disabling a conversation that was never enabled stays an error.
		if !enabled {
			return ErrNotFound
		}
		m.data[conversationID] = enabledState(conversationID, flowID)
		return nil
	}

	m.data[conversationID] = toggled(st, enabled, flowID)
	return nil
}

// Close implements chatflow.StateStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored conversations. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
