package mocks

import (
	"context"
	"sync"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// MockPendingStateStore is a mock implementation of PendingStateStore for testing.
// It records every call so tests can assert single-read / single-delete behavior.
type MockPendingStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.PendingAuthorizationState

	GetCalls     int
	DeleteCalls  int
	CleanupCalls int

	// Custom behavior hooks (optional)
	GetErr     error
	DeleteErr  error
	SaveErr    error
	CleanupErr error
}

// NewMockPendingStateStore creates a new MockPendingStateStore
func NewMockPendingStateStore() *MockPendingStateStore {
	return &MockPendingStateStore{
		states: make(map[string]*domain.PendingAuthorizationState),
	}
}

// Put seeds a token for a scope without counting as a Save call.
func (m *MockPendingStateStore) Put(scope, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[scope] = &domain.PendingAuthorizationState{Scope: scope, Token: token}
}

// Has reports whether a state exists for scope (for test assertions).
func (m *MockPendingStateStore) Has(scope string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[scope]
	return ok
}

func (m *MockPendingStateStore) Save(ctx context.Context, state *domain.PendingAuthorizationState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.Scope] = &cp
	return nil
}

func (m *MockPendingStateStore) Get(ctx context.Context, scope string) (*domain.PendingAuthorizationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	s, ok := m.states[scope]
	if !ok || s.IsExpired() {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockPendingStateStore) Delete(ctx context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.states, scope)
	return nil
}

func (m *MockPendingStateStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CleanupCalls++
	if m.CleanupErr != nil {
		return m.CleanupErr
	}
	for k, v := range m.states {
		if v.IsExpired() {
			delete(m.states, k)
		}
	}
	return nil
}

func (m *MockPendingStateStore) Ping(ctx context.Context) error {
	return nil
}
