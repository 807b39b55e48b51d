package transcript

import (
	"context"
	"sync"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// MemoryStore is an in-memory transcript store for tests and single-process use.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]chatflow.Message
	closed bool
}

// NewMemoryStore creates a new in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]chatflow.Message),
	}
}

// Append implements chatflow.TranscriptStore.
func (m *MemoryStore) Append(_ context.Context, conversationID string, msg chatflow.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.data[conversationID] = append(m.data[conversationID], msg)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, conversationID string) ([]chatflow.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	msgs := m.data[conversationID]
	out := make([]chatflow.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
