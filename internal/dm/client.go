package dm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the APS API host.
const DefaultBaseURL = "https://developer.api.autodesk.com"

const (
	contentTypeJSONAPI = "application/vnd.api+json"
	contentTypeJSON    = "application/json"
	requestIDHeader    = "x-request-id"
)

// TokenSource provides bearer tokens for metadata calls. Defined at the
// consumer; auth.Issuer (2-legged) and auth.UserSource (3-legged) satisfy it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that cache. The client calls
// it after a 401 so the next call fetches a fresh token.
type invalidator interface {
	Invalidate()
}

// Client is the authenticated request gateway for the metadata APIs.
// It builds requests, attaches the bearer token, and classifies errors.
// Calls are not retried: a failure is returned to the caller as-is.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string

	// transferClient sends signed-URL PUTs. Defaults to httpClient.
	transferClient *http.Client

	// limiter paces outgoing metadata calls. nil means unlimited.
	limiter *rate.Limiter
}

// NewClient creates a client. baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     httpClient,
		transferClient: httpClient,
		token:          token,
		logger:         logger,
		userAgent:      userAgent,
	}
}

// SetTransferClient sets the HTTP client used for signed-URL uploads, which
// usually needs a longer timeout than metadata calls. nil restores the
// metadata client.
func (c *Client) SetTransferClient(hc *http.Client) {
	if hc == nil {
		hc = c.httpClient
	}

	c.transferClient = hc
}

// SetRateLimit paces metadata calls to rps requests per second with a burst
// of one. rps <= 0 removes the limit. Signed-URL transfers are never paced.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}

	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Do executes an authenticated request against the metadata API. The path
// is appended to the base URL. Non-nil bodies are sent as JSON:API.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	contentType := ""
	if body != nil {
		contentType = contentTypeJSONAPI
	}

	return c.do(ctx, method, path, contentType, body)
}

// do is Do with an explicit content type. OSS endpoints take plain JSON.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("dm: waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("dm: creating request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("dm: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dm: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("dm: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	apiErr := newAPIError(resp, errBody)

	c.logger.Warn("request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", apiErr.RequestID),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.token.(invalidator); ok {
			inv.Invalidate()
		}
	}

	return nil, apiErr
}

// doJSON sends in (if non-nil) as a request body of the given content type
// and decodes the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, contentType string, in, out any) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("dm: encoding %s %s request: %w", method, path, err)
		}

		body = bytes.NewReader(b)
	}

	resp, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dm: decoding %s %s response: %w", method, path, err)
	}

	return nil
}

// getJSONAPI decodes a JSON:API GET response into out.
func (c *Client) getJSONAPI(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, "", nil, out)
}

// postJSONAPI sends a JSON:API document and decodes the response into out.
func (c *Client) postJSONAPI(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, contentTypeJSONAPI, in, out)
}
