// Package backend is the typed client for the remote marketplace REST API.
// All persistence and authorization live on that backend; this package only
// shapes requests, injects bearer tokens and decodes responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Client issues requests against a single backend base URL. It is safe for
// concurrent use; per-user credentials are passed per call, not stored.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client for the given base URL. A zero timeout falls
// back to 30s, which also bounds multipart uploads.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do executes one request and decodes a 2xx JSON body into out (when out is
// non-nil). Non-2xx responses are mapped through decodeError.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", method, path, err)
	}
	return nil
}

// getJSON issues an unauthenticated or bearer-authenticated GET.
func (c *Client) getJSON(ctx context.Context, path, token string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, token, nil, "", out)
}

// sendJSON marshals body and issues method with a JSON content type.
func (c *Client) sendJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request %s %s: %w", method, path, err)
	}
	return c.do(ctx, method, path, token, bytes.NewReader(buf), "application/json", out)
}

// encodeQuery renders non-empty values as a query suffix, "" when empty.
func encodeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}
