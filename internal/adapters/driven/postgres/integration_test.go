//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven/mocks"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driving"
	"github.com/sonpero/Notes2Notion/internal/core/services"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/adapters/driven/postgres/
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, DefaultConfig(url))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM oauth_pending_states`); err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM oauth_pending_states`).Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func TestIntegration_PendingStateStore_SaveGetDelete(t *testing.T) {
	db := setupTestDB(t)
	store := NewPendingStateStore(db.DB)
	ctx := context.Background()

	if err := store.Save(ctx, &domain.PendingAuthorizationState{Scope: "scope-1", Token: "xyz"}); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	got, err := store.Get(ctx, "scope-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Token != "xyz" {
		t.Fatalf("expected token xyz, got %+v", got)
	}
	if got.ExpiresAt.IsZero() {
		t.Error("expected default expiry to be applied")
	}

	if err := store.Delete(ctx, "scope-1"); err != nil {
		t.Fatalf("unexpected error deleting: %v", err)
	}
	if got, _ := store.Get(ctx, "scope-1"); got != nil {
		t.Errorf("expected state to be deleted, got %+v", got)
	}
}

func TestIntegration_PendingStateStore_SaveReplaces(t *testing.T) {
	db := setupTestDB(t)
	store := NewPendingStateStore(db.DB)
	ctx := context.Background()

	for _, token := range []string{"first", "second"} {
		if err := store.Save(ctx, &domain.PendingAuthorizationState{Scope: "scope-1", Token: token}); err != nil {
			t.Fatalf("unexpected error saving: %v", err)
		}
	}

	got, err := store.Get(ctx, "scope-1")
	if err != nil || got == nil || got.Token != "second" {
		t.Errorf("expected latest token, got %+v, %v", got, err)
	}
	if n := countRows(t, db); n != 1 {
		t.Errorf("expected one row per scope, got %d", n)
	}
}

func TestIntegration_PendingStateStore_ExpiredIsAbsentAndSwept(t *testing.T) {
	db := setupTestDB(t)
	store := NewPendingStateStore(db.DB)
	ctx := context.Background()

	expired := &domain.PendingAuthorizationState{
		Scope:     "expired",
		Token:     "old",
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	live := &domain.PendingAuthorizationState{
		Scope:     "live",
		Token:     "xyz",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	for _, s := range []*domain.PendingAuthorizationState{expired, live} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("unexpected error saving %s: %v", s.Scope, err)
		}
	}

	if got, err := store.Get(ctx, "expired"); err != nil || got != nil {
		t.Errorf("expected expired state to read as absent, got %+v, %v", got, err)
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("unexpected cleanup error: %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Errorf("expected only the live row to remain, got %d", n)
	}
	if got, _ := store.Get(ctx, "live"); got == nil {
		t.Error("expected live state to survive cleanup")
	}
}

func TestIntegration_AdvisoryLock_ExcludesOtherInstances(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := NewAdvisoryLock(db)
	second := NewAdvisoryLock(db)
	name := services.CallbackLockName("scope-1")

	if ok, err := first.Acquire(ctx, name, time.Minute); err != nil || !ok {
		t.Fatalf("expected first instance to acquire, got %v, %v", ok, err)
	}
	if ok, err := second.Acquire(ctx, name, time.Minute); err != nil || ok {
		t.Errorf("expected second instance to be excluded, got %v, %v", ok, err)
	}

	if err := first.Release(ctx, name); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if ok, err := second.Acquire(ctx, name, time.Minute); err != nil || !ok {
		t.Errorf("expected second instance to acquire after release, got %v, %v", ok, err)
	}
	_ = second.Release(ctx, name)
}

func TestIntegration_Callback_ConcurrentDuplicateExchangesOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store := NewPendingStateStore(db.DB)
	if err := store.Save(ctx, &domain.PendingAuthorizationState{Scope: "scope-1", Token: "xyz"}); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	release := make(chan struct{})
	exchanger := &mocks.MockCodeExchanger{
		ExchangeFn: func(ctx context.Context, code string) (*domain.ExchangeResult, error) {
			<-release
			return &domain.ExchangeResult{StatusCode: 200}, nil
		},
	}
	svc := services.NewCallbackService(services.CallbackServiceConfig{
		StateStore: store,
		Exchanger:  exchanger,
		Lock:       NewAdvisoryLock(db),
	})
	req := driving.CallbackRequest{
		Scope:  "scope-1",
		Params: domain.CallbackParameters{Code: "abc123", State: "xyz"},
	}

	var wg sync.WaitGroup
	outcomes := make(chan domain.Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.HandleCallback(ctx, req)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- result.Outcome
		}()
	}

	if got := <-outcomes; got != domain.OutcomeRejected {
		t.Errorf("expected the duplicate to be rejected, got %s", got)
	}
	close(release)
	wg.Wait()

	if n := exchanger.Calls(); n != 1 {
		t.Errorf("expected exactly one exchange, got %d", n)
	}
	if got, _ := store.Get(ctx, "scope-1"); got != nil {
		t.Error("expected pending state to be deleted")
	}
}
