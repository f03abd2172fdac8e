package domain

import (
	"crypto/subtle"
	"net/url"
	"strings"
	"time"
)

// PendingStateKey is the fixed storage key of the anti-forgery token.
// Stores namespace it per browser scope.
const PendingStateKey = "notion_oauth_state"

// CallbackParameters holds the query parameters of an authorization server
// redirect. Empty values are treated as absent.
type CallbackParameters struct {
	Code             string `json:"code,omitempty"`
	State            string `json:"state,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ParseCallbackParameters extracts the callback parameters from a redirect query.
func ParseCallbackParameters(q url.Values) CallbackParameters {
	return CallbackParameters{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// HasCode reports whether an authorization code is present.
func (p CallbackParameters) HasCode() bool {
	return p.Code != ""
}

// HasState reports whether a state parameter is present.
func (p CallbackParameters) HasState() bool {
	return p.State != ""
}

// HasError reports whether the authorization server returned an error response.
func (p CallbackParameters) HasError() bool {
	return p.Error != ""
}

// PendingAuthorizationState is the anti-forgery token issued before the
// redirect to the authorization server. It is consumed by the callback.
type PendingAuthorizationState struct {
	Scope     string    `json:"scope"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the pending state has expired.
// A zero ExpiresAt never expires.
func (s *PendingAuthorizationState) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// Matches reports whether the returned state equals the stored token.
// Both must be non-empty; the comparison is exact and constant time.
func (s *PendingAuthorizationState) Matches(state string) bool {
	if s == nil || s.Token == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.Token), []byte(state)) == 1
}

// StorageKey returns the namespaced key for a scope.
func StorageKey(scope string) string {
	return PendingStateKey + ":" + scope
}

// ExchangeResult is the backend exchange response. Only the status is consumed.
type ExchangeResult struct {
	StatusCode int `json:"status_code"`
}

// Success reports whether the exchange endpoint answered with a 2xx status.
func (r *ExchangeResult) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusPolicy decides how exchange responses are classified.
type StatusPolicy string

const (
	// StatusPolicyStrict treats only 2xx responses as a successful connection.
	StatusPolicyStrict StatusPolicy = "strict"
	// StatusPolicyAcceptAny treats every received response as a successful connection.
	StatusPolicyAcceptAny StatusPolicy = "accept-any"
)

// ParseStatusPolicy parses a policy name. Empty input yields StatusPolicyStrict.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch StatusPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusPolicyStrict:
		return StatusPolicyStrict, nil
	case StatusPolicyAcceptAny:
		return StatusPolicyAcceptAny, nil
	default:
		return "", ErrInvalidInput
	}
}

// Accepts reports whether a received response counts as a successful exchange.
func (p StatusPolicy) Accepts(r *ExchangeResult) bool {
	if r == nil {
		return false
	}
	if p == StatusPolicyAcceptAny {
		return true
	}
	return r.Success()
}

// Outcome is the terminal (or pending) state of a callback activation.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeRejected  Outcome = "rejected"
	OutcomeConnected Outcome = "connected"
	OutcomeFailed    Outcome = "failed"
)

// IsTerminal reports whether the outcome carries a navigation.
func (o Outcome) IsTerminal() bool {
	return o == OutcomeRejected || o == OutcomeConnected || o == OutcomeFailed
}

// Destination is a navigation target: a base URL plus a single query indicator.
type Destination struct {
	Base  string
	Key   string
	Value string
}

// ErrorDestination returns the destination for rejected or failed callbacks.
func ErrorDestination(base string) Destination {
	return Destination{Base: base, Key: "error", Value: "oauth"}
}

// ConnectedDestination returns the destination for a completed exchange.
func ConnectedDestination(base string) Destination {
	return Destination{Base: base, Key: "notion", Value: "connected"}
}

// String renders the destination, merging the indicator into any existing query.
func (d Destination) String() string {
	base := d.Base
	if base == "" {
		base = "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "/?" + url.Values{d.Key: {d.Value}}.Encode()
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set(d.Key, d.Value)
	u.RawQuery = q.Encode()
	return u.String()
}
