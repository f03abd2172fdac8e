package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driving"
)

// ScopeCookieName is the cookie binding a browser to its pending state.
const ScopeCookieName = "n2n_oauth_scope"

// scopeCookiePath limits the cookie to the OAuth routes.
const scopeCookiePath = "/notion"

// callbackCompletePath runs the callback after the interstitial page.
const callbackCompletePath = "/notion/callback/complete"

// ServiceName is reported by the health endpoint.
const ServiceName = "Notes2Notion OAuth callback"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// VersionResponse represents the API version response
type VersionResponse struct {
	Version string `json:"version"`
}

// Health endpoints

// handleHealth reports liveness plus the state of each backing component.
// It always answers 200 while the process can respond; a failing component
// turns the status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: s.version,
	}

	if len(s.components) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Components = make(map[string]string, len(s.components))
		for name, p := range s.components {
			if err := p.Ping(ctx); err != nil {
				s.logger.Warn("health check failed", "component", name, "error", err)
				resp.Components[name] = "unhealthy"
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "healthy"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// OAuth endpoints

// handleConnect starts a Notion authorization: it stores a fresh pending
// state, binds it to the browser with the scope cookie and redirects to Notion.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	resp, err := s.connectService.Begin(r.Context())
	if err != nil {
		s.logger.Error("failed to start authorization", "error", err)
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusServiceUnavailable, "notion integration is not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	value, err := s.signer.Sign(resp.Scope, resp.ExpiresAt)
	if err != nil {
		s.logger.Error("failed to sign scope cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	http.SetCookie(w, s.scopeCookie(value, resp.ExpiresAt))
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, resp.AuthorizationURL, http.StatusFound)
}

// handleCallback receives the redirect from Notion and ends the browser on
// /?notion=connected or /?error=oauth. If the request goes away while the
// exchange is in flight, nothing is written.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("oauth callback request", "callback_url", r.URL.String())

	req := driving.CallbackRequest{
		Scope:  s.scopeFromRequest(r),
		Params: domain.ParseCallbackParameters(r.URL.Query()),
	}

	result, err := s.callbackService.HandleCallback(r.Context(), req)
	if result != nil && result.Outcome == domain.OutcomePending {
		return
	}
	if err != nil {
		s.logger.Error("oauth callback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if result.Outcome == domain.OutcomeConnected {
		http.SetCookie(w, s.expiredScopeCookie())
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, result.Destination.String(), http.StatusFound)
}

var interstitialPage = template.Must(template.New("connecting").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="referrer" content="no-referrer">
<meta http-equiv="refresh" content="0;url={{.}}">
<title>Notes2Notion</title>
</head>
<body>
<p>Connecting Notion...</p>
<p><a href="{{.}}">Continue</a></p>
</body>
</html>
`))

// handleCallbackInterstitial shows "Connecting Notion..." and forwards the
// provider parameters to callbackCompletePath. It reads no state.
func (s *Server) handleCallbackInterstitial(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("oauth callback interstitial", "callback_url", r.URL.String())

	target := callbackCompletePath
	if q := r.URL.Query(); len(q) > 0 {
		target += "?" + q.Encode()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(http.StatusOK)
	if err := interstitialPage.Execute(w, target); err != nil {
		s.logger.Error("failed to render interstitial", "error", err)
	}
}

// scopeFromRequest returns the verified scope from the cookie, or "" when the
// cookie is missing or invalid.
func (s *Server) scopeFromRequest(r *http.Request) string {
	c, err := r.Cookie(ScopeCookieName)
	if err != nil {
		return ""
	}
	scope, err := s.signer.Verify(c.Value)
	if err != nil {
		s.logger.Warn("invalid scope cookie", "error", err)
		return ""
	}
	return scope
}

func (s *Server) scopeCookie(value string, expiresAt time.Time) *http.Cookie {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     ScopeCookieName,
		Value:    value,
		Path:     scopeCookiePath,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) expiredScopeCookie() *http.Cookie {
	return &http.Cookie{
		Name:     ScopeCookieName,
		Value:    "",
		Path:     scopeCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
