// Package httpclient provides the HTTP transport used by the fetch scheduler.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB). Feed
	// payloads for a 64x32 matrix are tiny; anything bigger is a broken
	// or hostile endpoint.
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "ledmatrixd/1.0"
)

// Client is the transport interface consumed by the fetch scheduler.
// Implementations must honor context cancellation and deadlines.
type Client interface {
	// Get performs an HTTP GET against rawURL with the given extra
	// headers and query parameters, returning the raw response body.
	Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) ([]byte, error)
}

// DefaultClient is the production Client backed by net/http.
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a Client with the specified per-request timeout.
// If timeout is 0, DefaultTimeout is used.
func NewDefaultClient(timeout time.Duration) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs an HTTP GET request.
func (c *DefaultClient) Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) ([]byte, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, target, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum of %d bytes", resp.ContentLength, MaxResponseSize)
	}

	// LimitReader with one extra byte so an over-limit body is detectable.
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// buildURL merges params into rawURL's query string.
func buildURL(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	query := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
