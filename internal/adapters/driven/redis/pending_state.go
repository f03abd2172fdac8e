package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PendingStateStore = (*PendingStateStore)(nil)

// DefaultPendingStateTTL bounds entries saved without an expiry.
const DefaultPendingStateTTL = 10 * time.Minute

// PendingStateStore implements driven.PendingStateStore using Redis.
// Each scope is one key, domain.StorageKey(scope); Redis TTL expires abandoned flows.
type PendingStateStore struct {
	client *redis.Client
}

// NewPendingStateStore creates a new Redis-backed PendingStateStore
func NewPendingStateStore(client *redis.Client) *PendingStateStore {
	return &PendingStateStore{client: client}
}

// Save stores the pending state with a TTL derived from ExpiresAt
func (s *PendingStateStore) Save(ctx context.Context, state *domain.PendingAuthorizationState) error {
	if state.Scope == "" {
		return fmt.Errorf("save pending state: %w", domain.ErrInvalidInput)
	}

	ttl := DefaultPendingStateTTL
	if !state.ExpiresAt.IsZero() {
		ttl = time.Until(state.ExpiresAt)
		if ttl <= 0 {
			// Already expired, don't save
			return nil
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal pending state: %w", err)
	}

	if err := s.client.Set(ctx, domain.StorageKey(state.Scope), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pending state: %w", err)
	}
	return nil
}

// Get retrieves the pending state for a scope
func (s *PendingStateStore) Get(ctx context.Context, scope string) (*domain.PendingAuthorizationState, error) {
	data, err := s.client.Get(ctx, domain.StorageKey(scope)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending state: %w", err)
	}

	var state domain.PendingAuthorizationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending state: %w", err)
	}

	// Double-check expiration
	if state.IsExpired() {
		return nil, nil
	}
	return &state, nil
}

// Delete removes the pending state for a scope
func (s *PendingStateStore) Delete(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, domain.StorageKey(scope)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending state: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys on its own.
func (s *PendingStateStore) Cleanup(ctx context.Context) error {
	return nil
}

// Ping checks if Redis is reachable
func (s *PendingStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
