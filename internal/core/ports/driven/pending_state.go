package driven

import (
	"context"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// PendingStateStore persists the anti-forgery token between the redirect to the
// authorization server and the callback. Entries are keyed by browser scope
// under domain.PendingStateKey.
//
// Implementations must be safe for concurrent use.
type PendingStateStore interface {
	// Save stores the pending state for its scope, replacing any previous one.
	Save(ctx context.Context, state *domain.PendingAuthorizationState) error

	// Get returns the pending state for a scope.
	// Returns nil, nil if no state exists or it has expired.
	Get(ctx context.Context, scope string) (*domain.PendingAuthorizationState, error)

	// Delete removes the pending state for a scope. Deleting a missing state is not an error.
	Delete(ctx context.Context, scope string) error

	// Cleanup removes expired states.
	Cleanup(ctx context.Context) error

	// Ping checks if the storage backend is healthy.
	Ping(ctx context.Context) error
}
