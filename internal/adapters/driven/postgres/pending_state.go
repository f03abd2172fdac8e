package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// Ensure PendingStateStore implements the interface.
var _ driven.PendingStateStore = (*PendingStateStore)(nil)

// DefaultPendingStateTTL applies to states saved without an expiry.
const DefaultPendingStateTTL = 10 * time.Minute

const (
	savePendingStateQuery = `
		INSERT INTO oauth_pending_states (scope, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope) DO UPDATE
		SET token = EXCLUDED.token, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
	`

	// Rows past expires_at are treated as absent.
	getPendingStateQuery = `
		SELECT scope, token, created_at, expires_at
		FROM oauth_pending_states
		WHERE scope = $1 AND expires_at > NOW()
	`

	deletePendingStateQuery = `DELETE FROM oauth_pending_states WHERE scope = $1`

	cleanupPendingStatesQuery = `DELETE FROM oauth_pending_states WHERE expires_at <= NOW()`
)

// PendingStateStore implements driven.PendingStateStore using PostgreSQL.
// One row per browser scope; expired rows are invisible and removed by Cleanup.
type PendingStateStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPendingStateStore creates a new PostgreSQL-backed pending state store.
func NewPendingStateStore(db *sql.DB) *PendingStateStore {
	return &PendingStateStore{
		db:  db,
		ttl: DefaultPendingStateTTL,
	}
}

// Save stores the pending state, replacing any previous state of the scope.
func (s *PendingStateStore) Save(ctx context.Context, state *domain.PendingAuthorizationState) error {
	if state.Scope == "" {
		return fmt.Errorf("save pending state: %w", domain.ErrInvalidInput)
	}

	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(s.ttl)
	}

	_, err := s.db.ExecContext(ctx, savePendingStateQuery, state.Scope, state.Token, state.CreatedAt, state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save pending state: %w", err)
	}
	return nil
}

// Get returns the unexpired pending state of a scope, or nil.
func (s *PendingStateStore) Get(ctx context.Context, scope string) (*domain.PendingAuthorizationState, error) {
	var state domain.PendingAuthorizationState
	err := s.db.QueryRowContext(ctx, getPendingStateQuery, scope).Scan(
		&state.Scope,
		&state.Token,
		&state.CreatedAt,
		&state.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending state: %w", err)
	}
	return &state, nil
}

// Delete removes the pending state of a scope.
func (s *PendingStateStore) Delete(ctx context.Context, scope string) error {
	_, err := s.db.ExecContext(ctx, deletePendingStateQuery, scope)
	if err != nil {
		return fmt.Errorf("delete pending state: %w", err)
	}
	return nil
}

// Cleanup removes expired states.
func (s *PendingStateStore) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, cleanupPendingStatesQuery)
	if err != nil {
		return fmt.Errorf("cleanup pending states: %w", err)
	}
	return nil
}

// Ping checks if the database is reachable.
func (s *PendingStateStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
