// Package logging builds the service logger. Secrets that pass through the
// OAuth callback (authorization codes, state tokens, signed cookies) are
// redacted before they reach the output.
package logging

import (
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Format represents the log output format.
type Format int

const (
	// FormatJSON is the default.
	FormatJSON Format = iota
	// FormatText is human-readable output for local development.
	FormatText
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values are always redacted.
var sensitiveKeys = map[string]bool{
	"code":         true,
	"state":        true,
	"stored_state": true,
	"token":        true,
	"cookie":       true,
}

// sensitiveParams are query parameters redacted inside URL-valued attributes.
var sensitiveParams = []string{"code", "state"}

type config struct {
	format Format
	level  slog.Leveler
	output io.Writer
	redact bool
}

// Option configures the logger created by New.
type Option func(*config)

// WithFormat sets the output format. The default is FormatJSON.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithLevel sets the minimum log level. The default is slog.LevelInfo.
func WithLevel(l slog.Leveler) Option {
	return func(c *config) {
		c.level = l
	}
}

// WithOutput sets the destination writer. The default is os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithRedaction toggles redaction of sensitive attributes. On by default.
func WithRedaction(enabled bool) Option {
	return func(c *config) {
		c.redact = enabled
	}
}

// New creates a configured *slog.Logger.
//
// Defaults:
//   - Format: JSON
//   - Level: INFO
//   - Output: os.Stderr
//   - Timestamps: RFC3339
//   - Redaction: enabled
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		format: FormatJSON,
		level:  slog.LevelInfo,
		output: os.Stderr,
		redact: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: cfg.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a = formatTime(groups, a)
			if cfg.redact {
				a = redact(groups, a)
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}
	return slog.New(handler)
}

// ParseFormat maps "json" or "text" to a Format. Anything else is JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// ParseLevel maps a level name to a slog.Level. Unknown names are INFO.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func formatTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	}
	return a
}

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, Redacted)
	}
	if strings.HasSuffix(key, "url") && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactURL(a.Value.String()))
	}
	return a
}

// RedactURL replaces the values of sensitive query parameters in raw.
// Unparseable input is returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if _, ok := q[p]; ok {
			q.Set(p, Redacted)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
