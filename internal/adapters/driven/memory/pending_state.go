// Package memory provides in-process adapters for single-instance deployments
// and local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PendingStateStore = (*PendingStateStore)(nil)

// PendingStateStore keeps pending states in a map keyed by domain.StorageKey.
type PendingStateStore struct {
	mu     sync.Mutex
	states map[string]domain.PendingAuthorizationState
	now    func() time.Time
}

// NewPendingStateStore creates an empty in-memory store.
func NewPendingStateStore() *PendingStateStore {
	return &PendingStateStore{
		states: make(map[string]domain.PendingAuthorizationState),
		now:    time.Now,
	}
}

func (s *PendingStateStore) expired(state domain.PendingAuthorizationState) bool {
	return !state.ExpiresAt.IsZero() && !s.now().Before(state.ExpiresAt)
}

// Save stores a copy of state, replacing any previous state for its scope.
func (s *PendingStateStore) Save(ctx context.Context, state *domain.PendingAuthorizationState) error {
	if state == nil || state.Scope == "" {
		return fmt.Errorf("save pending state: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[domain.StorageKey(state.Scope)] = *state
	return nil
}

// Get returns a copy of the pending state, or nil if absent or expired.
func (s *PendingStateStore) Get(ctx context.Context, scope string) (*domain.PendingAuthorizationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[domain.StorageKey(scope)]
	if !ok || s.expired(state) {
		return nil, nil
	}
	return &state, nil
}

// Delete removes the pending state for scope.
func (s *PendingStateStore) Delete(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, domain.StorageKey(scope))
	return nil
}

// Cleanup drops every expired state.
func (s *PendingStateStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range s.states {
		if s.expired(state) {
			delete(s.states, key)
		}
	}
	return nil
}

// Len returns the number of stored states, expired ones included.
func (s *PendingStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Ping always succeeds.
func (s *PendingStateStore) Ping(ctx context.Context) error {
	return nil
}
