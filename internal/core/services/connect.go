package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driving"
)

// Ensure connectService implements ConnectService
var _ driving.ConnectService = (*connectService)(nil)

// DefaultStateTTL is how long a pending authorization state stays valid.
const DefaultStateTTL = 10 * time.Minute

// NotionEndpoint is the Notion OAuth endpoint.
var NotionEndpoint = oauth2.Endpoint{
	AuthURL:   "https://api.notion.com/v1/oauth/authorize",
	TokenURL:  "https://api.notion.com/v1/oauth/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// ConnectServiceConfig holds configuration for the connect service.
type ConnectServiceConfig struct {
	StateStore driven.PendingStateStore

	// OAuth carries the client ID, endpoint and redirect URL used to build the
	// authorization URL. The client secret is not needed here.
	OAuth *oauth2.Config

	// StateTTL defaults to DefaultStateTTL.
	StateTTL time.Duration

	Logger *slog.Logger
}

type connectService struct {
	stateStore driven.PendingStateStore
	oauth      *oauth2.Config
	ttl        time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewConnectService creates a new connect service.
func NewConnectService(cfg ConnectServiceConfig) driving.ConnectService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &connectService{
		stateStore: cfg.StateStore,
		oauth:      cfg.OAuth,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// Begin generates a fresh scope and anti-forgery token, stores the pending
// state and returns the Notion authorization URL.
func (s *connectService) Begin(ctx context.Context) (*driving.BeginResponse, error) {
	if s.oauth == nil || s.oauth.ClientID == "" {
		return nil, fmt.Errorf("notion client id: %w", domain.ErrInvalidInput)
	}

	token, err := generateStateToken()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	now := s.now()
	pending := &domain.PendingAuthorizationState{
		Scope:     uuid.NewString(),
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.stateStore.Save(ctx, pending); err != nil {
		return nil, fmt.Errorf("save pending state: %w", err)
	}

	authURL := s.oauth.AuthCodeURL(token, oauth2.SetAuthURLParam("owner", "user"))

	s.logger.Info("notion authorization started",
		"scope", pending.Scope,
		"expires_at", pending.ExpiresAt.Format(time.RFC3339),
	)

	return &driving.BeginResponse{
		AuthorizationURL: authURL,
		Scope:            pending.Scope,
		ExpiresAt:        pending.ExpiresAt,
	}, nil
}

// generateStateToken generates a cryptographically secure anti-forgery token.
func generateStateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
