package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

func normalizeSQL(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func TestPendingStateQueries_ExpiryBoundary(t *testing.T) {
	get := normalizeSQL(getPendingStateQuery)
	cleanup := normalizeSQL(cleanupPendingStatesQuery)

	if !strings.Contains(get, "WHERE scope = $1 AND expires_at > NOW()") {
		t.Errorf("Get must hide expired rows, got %q", get)
	}
	// Every row Get treats as absent is one Cleanup removes.
	if !strings.Contains(cleanup, "WHERE expires_at <= NOW()") {
		t.Errorf("Cleanup must remove rows Get hides, got %q", cleanup)
	}
}

func TestPendingStateQueries_SaveReplacesScope(t *testing.T) {
	save := normalizeSQL(savePendingStateQuery)

	if !strings.Contains(save, "ON CONFLICT (scope) DO UPDATE") {
		t.Errorf("Save must upsert on scope, got %q", save)
	}
	for _, col := range []string{"token = EXCLUDED.token", "expires_at = EXCLUDED.expires_at"} {
		if !strings.Contains(save, col) {
			t.Errorf("Save must replace %s, got %q", col, save)
		}
	}
}

func TestPendingStateQueries_DeleteIsScoped(t *testing.T) {
	if got := normalizeSQL(deletePendingStateQuery); got != "DELETE FROM oauth_pending_states WHERE scope = $1" {
		t.Errorf("unexpected delete query %q", got)
	}
}

func TestPendingStateStore_SaveRequiresScope(t *testing.T) {
	store := NewPendingStateStore(nil)

	err := store.Save(context.Background(), &domain.PendingAuthorizationState{Token: "xyz"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
