// Package exchange forwards authorization codes to the backend exchange endpoint.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CodeExchanger = (*Client)(nil)

// DefaultURL is the backend exchange endpoint used when none is configured.
const DefaultURL = "http://localhost:5001/api/notion/oauth/exchange"

// maxDrain bounds how much of an ignored response body is read before closing.
const maxDrain = 64 << 10

// Config holds configuration for the exchange client.
type Config struct {
	// URL of the exchange endpoint. Defaults to DefaultURL.
	URL string

	// Timeout bounds a single exchange. Zero means the request only ends
	// when the caller's context does.
	Timeout time.Duration

	// HTTPClient overrides the pooled cleanhttp client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client POSTs {"code": ...} to the exchange endpoint.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

type exchangeRequest struct {
	Code string `json:"code"`
}

// NewClient creates a new exchange client.
func NewClient(cfg Config) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: cleanhttp.DefaultPooledTransport()}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		timeout: cfg.Timeout,
		http:    httpClient,
		logger:  logger,
	}
}

// Exchange sends one exchange request. Any received response yields a result
// carrying its status; the body is ignored.
func (c *Client) Exchange(ctx context.Context, code string) (*domain.ExchangeResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(exchangeRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	c.logger.Debug("exchange request completed",
		"url", c.url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &domain.ExchangeResult{StatusCode: resp.StatusCode}, nil
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}
