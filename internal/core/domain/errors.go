package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrScopeInvalid indicates the browser scope cookie is missing, malformed or expired
	ErrScopeInvalid = errors.New("scope invalid")

	// ErrStateMismatch indicates the returned state does not match the pending state
	ErrStateMismatch = errors.New("state mismatch")

	// ErrMissingCode indicates the callback carried no authorization code
	ErrMissingCode = errors.New("missing authorization code")

	// ErrMissingState indicates the callback carried no state parameter
	ErrMissingState = errors.New("missing state")

	// ErrNoPendingState indicates no pending authorization state exists for the scope
	ErrNoPendingState = errors.New("no pending authorization state")

	// ErrProviderDenied indicates the authorization server returned an error response
	ErrProviderDenied = errors.New("authorization denied by provider")

	// ErrExchangeRejected indicates the exchange endpoint answered with a non-success status
	ErrExchangeRejected = errors.New("exchange rejected")

	// ErrCallbackInFlight indicates another callback of the same scope is being handled
	ErrCallbackInFlight = errors.New("callback already in flight")
)
