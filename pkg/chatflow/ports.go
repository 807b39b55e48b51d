package chatflow

import (
	"context"
	"encoding/json"
	"time"
)

// ConversationState is the persisted automation state of one conversation.
// CurrentNodeID is the execution cursor: nil means not mid-flow, either
// never started or just completed. A set cursor is re-resolved against the
// current graph snapshot on every step, since the flow definition may have
// been edited between messages.
type ConversationState struct {
	ConversationID string  `json:"conversationId"`
	BusinessID     string  `json:"businessId"`
	PhoneNumber    string  `json:"phoneNumber"`
	BotActive      bool    `json:"isBotActive"`
	FlowID         *string `json:"flowId,omitempty"`
	CurrentNodeID  *string `json:"currentNodeId,omitempty"`
}

// Direction tags transcript messages by author.
type Direction string

// Message directions.
const (
	DirectionBot  Direction = "bot"
	DirectionUser Direction = "user"
)

// Message is one transcript entry. For bot messages Payload holds the full
// rendered outbound payload, including interactive buttons and lists, so a
// later read reconstructs exactly what was shown to the user.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Direction      Direction       `json:"direction"`
	Body           string          `json:"body"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Recipient identifies where an outbound message goes.
type Recipient struct {
	ConversationID string
	BusinessID     string
	PhoneNumber    string
}

// Delivery is the gateway's acknowledgment of one send.
type Delivery struct {
	// MessageID is the provider-assigned message identifier.
	MessageID string
}

// FlowSource supplies immutable flow snapshots. One snapshot is loaded per
// step-loop invocation and never mutated by the engine.
type FlowSource interface {
	// GetCompleteFlow returns the current snapshot of a flow.
	GetCompleteFlow(ctx context.Context, flowID, businessID string) (*FlowGraph, error)
}

// StateStore persists conversation automation state.
// Implementations must be safe for concurrent use.
type StateStore interface {
	// Get returns the state for a conversation.
	// Returns an error satisfying errors.Is(err, state.ErrNotFound)
	// semantics of the chosen backend when the conversation is unknown.
	Get(ctx context.Context, conversationID string) (*ConversationState, error)

	// Put creates or replaces the state for a conversation.
	Put(ctx context.Context, st *ConversationState) error

	// SetCursor moves the execution cursor. nil clears it.
	SetCursor(ctx context.Context, conversationID string, nodeID *string) error

	// Toggle enables or disables automation. Toggling always resets the
	// cursor to nil; enabling binds the given flow and creates the
	// conversation's state when none exists yet.
	Toggle(ctx context.Context, conversationID string, enabled bool, flowID *string) error

	// Close releases any resources.
	Close() error
}

// Gateway delivers rendered payloads to the messaging provider.
// The engine never retries a send; retry and backoff policy belongs to the
// gateway implementation.
type Gateway interface {
	Send(ctx context.Context, to Recipient, p Payload) (Delivery, error)
}

// TranscriptStore records what was sent, independent of cursor persistence.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, msg Message) error
}
