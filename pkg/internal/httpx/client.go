// Package httpx implements the HTTP pipeline: request construction, auth
// injection, dispatch with retries, response classification, and the
// HTTP/2 body-size guard.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/llmwire/llmwire/pkg/internal/retry"
	"github.com/llmwire/llmwire/pkg/provider"
	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
)

// Http2BodyLimit is the largest request body sent over a transport that
// may negotiate HTTP/2. The margin guards against flow-control stalls on
// oversized single-frame writes.
const Http2BodyLimit = 65535

// DefaultHTTPClient is a shared HTTP client with sensible defaults
var DefaultHTTPClient = &http.Client{
	Timeout: 120 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Config contains configuration for a pipeline client.
type Config struct {
	// HTTPClient is the underlying HTTP client. If nil, DefaultHTTPClient
	// is used.
	HTTPClient *http.Client

	// Protocols the transport is configured with, e.g. ["http2",
	// "http1"]. Consulted by the HTTP/2 body guard. Defaults to both.
	Protocols []string

	// Limiter optionally gates dispatch client-side.
	Limiter *rate.Limiter

	// APIKey overrides environment lookup when set.
	APIKey string

	// DisableRetries turns the retry policy off.
	DisableRetries bool
}

// Client drives non-streaming and streaming requests for one call.
type Client struct {
	cfg Config
}

// New creates a pipeline client.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = DefaultHTTPClient
	}
	if cfg.Protocols == nil {
		cfg.Protocols = []string{"http2", "http1"}
	}
	return &Client{cfg: cfg}
}

// Credential resolves the API key for the model: explicit option first,
// then the provider's environment variables in catalog order.
func (c *Client) Credential(model *types.Model) (string, error) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	for _, env := range model.EnvVars {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	return "", &llmerrors.AuthError{
		Provider: model.Provider,
		Reason:   fmt.Sprintf("no API key: set one of %v or pass WithAPIKey", model.EnvVars),
	}
}

// http2Allowed reports whether the configured protocol set includes
// HTTP/2.
func (c *Client) http2Allowed() bool {
	for _, p := range c.cfg.Protocols {
		if p == "http2" || p == "h2" {
			return true
		}
	}
	return false
}

// GuardBody enforces the HTTP/2 body-size limit on transports that may
// negotiate HTTP/2.
func (c *Client) GuardBody(body []byte) error {
	if len(body) > Http2BodyLimit && c.http2Allowed() {
		return &llmerrors.Http2BodyTooLargeError{
			Size:      len(body),
			Protocols: append([]string(nil), c.cfg.Protocols...),
		}
	}
	return nil
}

// Post sends the encoded body to baseURL+path with the provider auth
// applied and returns the raw 2xx response body. Transport errors and
// retriable 5xx responses retry with exponential backoff; 4xx never
// retries.
func (c *Client) Post(ctx context.Context, baseURL, path string, body []byte, auth provider.Auth, key string) ([]byte, error) {
	if err := c.GuardBody(body); err != nil {
		return nil, err
	}

	var respBody []byte
	cfg := retry.DefaultConfig()
	cfg.ShouldRetry = llmerrors.Retriable
	if c.cfg.DisableRetries {
		cfg.MaxRetries = 0
	}

	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		resp, err := c.send(ctx, baseURL, path, body, auth, key)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &llmerrors.ProtocolError{Reason: "reading response body", Cause: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return llmerrors.NewAPIError(resp.StatusCode, body, raw)
		}
		respBody = raw
		return nil
	})
	if err != nil {
		return nil, llmerrors.FromContext(err)
	}
	return respBody, nil
}

// OpenStream sends the streaming request and returns the response body
// once 2xx headers arrive. No retries happen after headers have been
// received. The caller owns the body.
func (c *Client) OpenStream(ctx context.Context, req *http.Request, encodedBody []byte) (io.ReadCloser, error) {
	if err := c.GuardBody(encodedBody); err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, llmerrors.FromContext(classifyTransport(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, llmerrors.NewAPIError(resp.StatusCode, encodedBody, raw)
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, baseURL, path string, body []byte, auth provider.Auth, key string) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &llmerrors.ValidationError{Reason: "building request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	auth.Apply(req, key)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return resp, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.cfg.Limiter == nil {
		return nil
	}
	if err := c.cfg.Limiter.Wait(ctx); err != nil {
		return llmerrors.FromContext(err)
	}
	return nil
}

// classifyTransport maps http.Client errors onto the taxonomy, keeping
// context errors distinguishable.
func classifyTransport(err error) error {
	if ctxErr := llmerrors.FromContext(err); ctxErr != err {
		return ctxErr
	}
	return &llmerrors.TransportError{Reason: err.Error(), Cause: err}
}
