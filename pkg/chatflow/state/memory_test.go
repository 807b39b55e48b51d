package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

func ptr(s string) *string { return &s }

func sampleState(conversationID string) *chatflow.ConversationState {
	flowID := "flow-1"
	return &chatflow.ConversationState{
		ConversationID: conversationID,
		BusinessID:     "biz-1",
		PhoneNumber:    "15550001111",
		BotActive:      true,
		FlowID:         &flowID,
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, sampleState("conv-1")))

	got, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "biz-1", got.BusinessID)
	assert.True(t, got.BotActive)
	require.NotNil(t, got.FlowID)
	assert.Equal(t, "flow-1", *got.FlowID)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleState("conv-1")))

	got, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	got.BotActive = false

	again, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, again.BotActive, "mutating a returned state must not affect the store")
}

func TestMemoryStore_SetCursor(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	assert.ErrorIs(t, store.SetCursor(ctx, "missing", ptr("n1")), ErrNotFound)

	require.NoError(t, store.Put(ctx, sampleState("conv-1")))
	require.NoError(t, store.SetCursor(ctx, "conv-1", ptr("n1")))

	got, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got.CurrentNodeID)
	assert.Equal(t, "n1", *got.CurrentNodeID)

	require.NoError(t, store.SetCursor(ctx, "conv-1", nil))
	got, err = store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got.CurrentNodeID)
}

func TestMemoryStore_Toggle(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleState("conv-1")))
	require.NoError(t, store.SetCursor(ctx, "conv-1", ptr("n1")))

	// Disabling clears the binding and the cursor.
	require.NoError(t, store.Toggle(ctx, "conv-1", false, nil))
	got, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, got.BotActive)
	assert.Nil(t, got.FlowID)
	assert.Nil(t, got.CurrentNodeID)

	// Re-enabling with a new flow starts from a fresh cursor.
	require.NoError(t, store.Toggle(ctx, "conv-1", true, ptr("flow-2")))
	got, err = store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, got.BotActive)
	require.NotNil(t, got.FlowID)
	assert.Equal(t, "flow-2", *got.FlowID)
	assert.Nil(t, got.CurrentNodeID)
}

func TestMemoryStore_ToggleEnableCreatesState(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	// Enabling a conversation never seen before creates its state with the
	// cursor unset, so the next inbound event starts at the flow entry.
	require.NoError(t, store.Toggle(ctx, "fresh-conv", true, ptr("flow-1")))

	got, err := store.Get(ctx, "fresh-conv")
	require.NoError(t, err)
	assert.True(t, got.BotActive)
	require.NotNil(t, got.FlowID)
	assert.Equal(t, "flow-1", *got.FlowID)
	assert.Nil(t, got.CurrentNodeID)

	// Disabling a conversation that was never enabled stays an error.
	assert.ErrorIs(t, store.Toggle(ctx, "never-seen", false, nil), ErrNotFound)
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleState("conv-1")))
	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Put(ctx, sampleState("conv-2")), ErrStoreClosed)
	assert.ErrorIs(t, store.SetCursor(ctx, "conv-1", nil), ErrStoreClosed)
	assert.ErrorIs(t, store.Toggle(ctx, "conv-1", false, nil), ErrStoreClosed)
}
