package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	rd "github.com/go-redis/redis/v9"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Addrs lists the Redis endpoints.
	Addrs []string
	// Namespace prefixes every key, isolating tenants sharing one Redis.
	Namespace string
}

// RedisStore persists conversation state in Redis, one JSON document per
// conversation. Suitable for multi-process deployments where several
// webhook workers share the cursor.
type RedisStore struct {
	client    rd.UniversalClient
	namespace string

	mu     sync.Mutex
	closed bool
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(conf RedisConfig) *RedisStore {
	client := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: conf.Addrs,
	})
	ns := conf.Namespace
	if ns == "" {
		ns = "chatflow"
	}
	return &RedisStore{client: client, namespace: ns}
}

func (r *RedisStore) key(conversationID string) string {
	return fmt.Sprintf("%s:state:%s", r.namespace, conversationID)
}

// Get implements chatflow.StateStore.
func (r *RedisStore) Get(ctx context.Context, conversationID string) (*chatflow.ConversationState, error) {
	raw, err := r.client.Get(ctx, r.key(conversationID)).Result()
	if errors.Is(err, rd.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	var st chatflow.ConversationState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &st, nil
}

// Put implements chatflow.StateStore.
func (r *RedisStore) Put(ctx context.Context, st *chatflow.ConversationState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := r.client.Set(ctx, r.key(st.ConversationID), data, 0).Err(); err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

// SetCursor implements chatflow.StateStore.
func (r *RedisStore) SetCursor(ctx context.Context, conversationID string, nodeID *string) error {
	st, err := r.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	st.CurrentNodeID = nodeID
	return r.Put(ctx, st)
}

// Toggle implements chatflow.StateStore.
func (r *RedisStore) Toggle(ctx context.Context, conversationID string, enabled bool, flowID *string) error {
	st, err := r.Get(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		// Enabling creates the conversation's state on first contact.
		if !enabled {
			return err
		}
		return r.Put(ctx, enabledState(conversationID, flowID))
	}
	if err != nil {
		return err
	}
	return r.Put(ctx, toggled(st, enabled, flowID))
}

// Close implements chatflow.StateStore.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}
