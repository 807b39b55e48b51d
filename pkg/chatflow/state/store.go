// Package state provides persistence backends for conversation automation
// state. The execution cursor stored here must survive indefinitely between
// inbound messages: a conversation parked at a wait-for-reply node stays
// suspended until the user answers, hours or days later.
package state

import (
	"errors"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// Sentinel errors for state operations.
var (
	// ErrNotFound indicates no state exists for the conversation.
	ErrNotFound = errors.New("conversation state not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("state store closed")
)

// Compile-time interface checks.
var (
	_ chatflow.StateStore = (*MemoryStore)(nil)
	_ chatflow.StateStore = (*SQLiteStore)(nil)
	_ chatflow.StateStore = (*RedisStore)(nil)
)

// toggled returns the state after a toggle operation: the flow binding is
// replaced as given and the cursor is always reset.
func toggled(st *chatflow.ConversationState, enabled bool, flowID *string) *chatflow.ConversationState {
	out := *st
	out.BotActive = enabled
	out.FlowID = flowID
	out.CurrentNodeID = nil
	return &out
}

// enabledState is the record created when automation is enabled for a
// conversation with no prior state: active, bound to the flow, cursor unset
// so the next inbound event starts at the flow entry.
func enabledState(conversationID string, flowID *string) *chatflow.ConversationState {
	return &chatflow.ConversationState{
		ConversationID: conversationID,
		BotActive:      true,
		FlowID:         flowID,
	}
}
