package driving

import (
	"context"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// CallbackService validates an authorization server redirect and exchanges the
// authorization code exactly once.
type CallbackService interface {
	// HandleCallback runs the callback state machine for one activation.
	// Validation failures and exchange failures are outcomes, not errors.
	// A returned error with OutcomePending means the activation was cancelled
	// before a terminal transition; no side effects were applied.
	HandleCallback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// CallbackRequest is one activation of the callback.
type CallbackRequest struct {
	// Scope identifies the browser whose pending state is consulted.
	// Empty means no pending state can exist.
	Scope string

	// Params are the redirect query parameters.
	Params domain.CallbackParameters
}

// CallbackResult is the outcome of an activation.
type CallbackResult struct {
	Outcome domain.Outcome `json:"outcome"`

	// Destination is set for terminal outcomes.
	Destination domain.Destination `json:"-"`

	// Reason explains a rejected or failed outcome. It never contains credentials.
	Reason error `json:"-"`

	// Exchange is the received exchange response, if any.
	Exchange *domain.ExchangeResult `json:"exchange,omitempty"`
}
