// Package transcript records what the bot and the user actually said.
// Bot entries carry the full rendered payload, interactive buttons and
// lists included, so a later read reconstructs exactly what was shown.
package transcript

import (
	"context"
	"errors"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// Sentinel errors for transcript operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("transcript store closed")
)

// Store extends the engine's append-only contract with reads for
// conversation views and audits.
type Store interface {
	chatflow.TranscriptStore

	// List returns a conversation's messages in append order.
	// Returns an empty slice (not an error) for unknown conversations.
	List(ctx context.Context, conversationID string) ([]chatflow.Message, error)

	// Close releases any resources.
	Close() error
}

// Compile-time interface checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
