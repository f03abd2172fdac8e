package driven

import (
	"context"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// CodeExchanger forwards an authorization code to the backend exchange endpoint.
type CodeExchanger interface {
	// Exchange issues exactly one exchange request for code.
	// A non-nil result means a response was received, whatever its status.
	// An error means no response was received (transport failure or cancellation).
	Exchange(ctx context.Context, code string) (*domain.ExchangeResult, error)
}
