package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driving"
)

// Ensure callbackService implements CallbackService
var _ driving.CallbackService = (*callbackService)(nil)

// DefaultCallbackLockTTL bounds how long one callback holds its scope.
// It should outlive the slowest exchange.
const DefaultCallbackLockTTL = 5 * time.Minute

// CallbackLockName is the lock serializing callbacks of one browser scope.
func CallbackLockName(scope string) string {
	return "callback:" + scope
}

// CallbackServiceConfig holds configuration for the callback service.
type CallbackServiceConfig struct {
	// StateStore holds the pending anti-forgery tokens.
	StateStore driven.PendingStateStore

	// Exchanger forwards the authorization code to the backend.
	Exchanger driven.CodeExchanger

	// Lock serializes callbacks sharing a scope. Nil disables it.
	Lock driven.DistributedLock

	// LockTTL defaults to DefaultCallbackLockTTL.
	LockTTL time.Duration

	// StatusPolicy classifies exchange responses. Defaults to strict.
	StatusPolicy domain.StatusPolicy

	// FrontendBaseURL is where the browser is sent after the callback.
	// Example: "/" or "http://localhost:3000"
	FrontendBaseURL string

	Logger *slog.Logger
}

// callbackService implements the CallbackService interface.
type callbackService struct {
	stateStore driven.PendingStateStore
	exchanger  driven.CodeExchanger
	lock       driven.DistributedLock
	lockTTL    time.Duration
	policy     domain.StatusPolicy
	baseURL    string
	logger     *slog.Logger
}

// NewCallbackService creates a new callback service.
func NewCallbackService(cfg CallbackServiceConfig) driving.CallbackService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.StatusPolicy
	if policy == "" {
		policy = domain.StatusPolicyStrict
	}
	baseURL := cfg.FrontendBaseURL
	if baseURL == "" {
		baseURL = "/"
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultCallbackLockTTL
	}

	return &callbackService{
		stateStore: cfg.StateStore,
		exchanger:  cfg.Exchanger,
		lock:       cfg.Lock,
		lockTTL:    lockTTL,
		policy:     policy,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// HandleCallback validates the redirect against the pending state and, when
// valid, performs a single exchange of the authorization code.
//
// The pending state is read once and deleted only after an accepted exchange.
// If ctx is done when the exchange returns, no side effect is applied and the
// outcome stays pending. While one callback of a scope is in flight, others
// for the same scope are rejected without reading the store.
func (s *callbackService) HandleCallback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResult, error) {
	logger := s.logger.With("scope", req.Scope)
	logger.Info("oauth callback received",
		"code", req.Params.Code,
		"state", req.Params.State,
	)

	if err := ctx.Err(); err != nil {
		return pendingResult(), err
	}

	var stored *domain.PendingAuthorizationState
	if req.Scope != "" {
		release, err := s.acquireScope(ctx, req.Scope)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pendingResult(), ctxErr
			}
			return nil, err
		}
		if release == nil {
			logger.Warn("oauth callback rejected", "reason", domain.ErrCallbackInFlight.Error())
			return &driving.CallbackResult{
				Outcome:     domain.OutcomeRejected,
				Destination: domain.ErrorDestination(s.baseURL),
				Reason:      domain.ErrCallbackInFlight,
			}, nil
		}
		defer release()

		stored, err = s.stateStore.Get(ctx, req.Scope)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pendingResult(), ctxErr
			}
			return nil, fmt.Errorf("read pending state: %w", err)
		}
	}

	if reason := validateCallback(req.Params, stored); reason != nil {
		logger.Warn("oauth callback rejected",
			"reason", reason.Error(),
			"state", req.Params.State,
			"stored_state", storedToken(stored),
			"provider_error", req.Params.Error,
		)
		return &driving.CallbackResult{
			Outcome:     domain.OutcomeRejected,
			Destination: domain.ErrorDestination(s.baseURL),
			Reason:      reason,
		}, nil
	}

	result, err := s.exchanger.Exchange(ctx, req.Params.Code)
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("oauth callback abandoned before exchange completed", "error", ctxErr)
		return pendingResult(), ctxErr
	}
	if err != nil {
		logger.Error("code exchange failed", "error", err)
		return &driving.CallbackResult{
			Outcome:     domain.OutcomeFailed,
			Destination: domain.ErrorDestination(s.baseURL),
			Reason:      fmt.Errorf("exchange code: %w", err),
		}, nil
	}

	logger.Info("exchange response received", "status", result.StatusCode, "policy", string(s.policy))

	if !s.policy.Accepts(result) {
		logger.Warn("exchange rejected by backend", "status", result.StatusCode)
		return &driving.CallbackResult{
			Outcome:     domain.OutcomeFailed,
			Destination: domain.ErrorDestination(s.baseURL),
			Reason:      fmt.Errorf("%w: status %d", domain.ErrExchangeRejected, result.StatusCode),
			Exchange:    result,
		}, nil
	}

	if err := s.stateStore.Delete(ctx, req.Scope); err != nil {
		// The exchange already consumed the code; the leftover state expires on its own.
		logger.Error("failed to delete pending state", "error", err)
	}

	logger.Info("notion connected")
	return &driving.CallbackResult{
		Outcome:     domain.OutcomeConnected,
		Destination: domain.ConnectedDestination(s.baseURL),
		Exchange:    result,
	}, nil
}

// acquireScope takes the scope's callback lock. It returns a nil release func
// when another callback holds it.
func (s *callbackService) acquireScope(ctx context.Context, scope string) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	name := CallbackLockName(scope)
	acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock scope: %w", err)
	}
	if !acquired {
		return nil, nil
	}

	return func() {
		// The request context may already be cancelled.
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("failed to release callback lock", "scope", scope, "error", err)
		}
	}, nil
}

// validateCallback is the CSRF gate. It returns nil only when a code is
// present and the returned state matches the stored token.
func validateCallback(p domain.CallbackParameters, stored *domain.PendingAuthorizationState) error {
	switch {
	case p.HasError():
		return domain.ErrProviderDenied
	case !p.HasCode():
		return domain.ErrMissingCode
	case !p.HasState():
		return domain.ErrMissingState
	case stored == nil:
		return domain.ErrNoPendingState
	case !stored.Matches(p.State):
		return domain.ErrStateMismatch
	}
	return nil
}

func pendingResult() *driving.CallbackResult {
	return &driving.CallbackResult{Outcome: domain.OutcomePending}
}

func storedToken(s *domain.PendingAuthorizationState) string {
	if s == nil {
		return ""
	}
	return s.Token
}
