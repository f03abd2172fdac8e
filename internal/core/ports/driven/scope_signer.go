package driven

import "time"

// ScopeSigner binds a browser to its pending state scope through a tamper-proof
// cookie value.
type ScopeSigner interface {
	// Sign returns a cookie value carrying scope, valid until expiresAt.
	Sign(scope string, expiresAt time.Time) (string, error)

	// Verify returns the scope carried by value.
	// Returns domain.ErrScopeInvalid if value is malformed, forged or expired.
	Verify(value string) (string, error)
}
