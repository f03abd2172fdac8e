package driving

import (
	"context"
	"time"
)

// ConnectService starts the Notion authorization flow.
type ConnectService interface {
	// Begin creates and persists a pending authorization state and returns the
	// authorization server URL to redirect the browser to.
	Begin(ctx context.Context) (*BeginResponse, error)
}

// BeginResponse contains the authorization URL and the scope to bind to the browser.
type BeginResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"authorization_url"`

	// Scope identifies the pending state. It is carried by the signed scope cookie.
	Scope string `json:"-"`

	// ExpiresAt is when the pending state expires.
	ExpiresAt time.Time `json:"expires_at"`
}
