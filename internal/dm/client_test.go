package dm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToken is a test TokenSource that returns a fixed token.
type staticToken string

func (t staticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// failingToken is a test TokenSource that always returns an error.
type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) {
	return "", errors.New("token error")
}

// countingToken records Invalidate calls.
type countingToken struct {
	invalidated atomic.Int32
}

func (c *countingToken) Token(context.Context) (string, error) { return "cached", nil }
func (c *countingToken) Invalidate()                           { c.invalidated.Add(1) }

// newTestClient creates a Client pointing at the given httptest server.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	return NewClient(url, http.DefaultClient, staticToken("test-token"), slog.Default(), "test-agent")
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/project/v1/hubs", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))
}

func TestDo_JSONAPIContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.api+json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Do(context.Background(), http.MethodPost, "/x", http.NoBody)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"gone", http.StatusGone, ErrGone},
		{"throttled", http.StatusTooManyRequests, ErrThrottled},
		{"server error", http.StatusInternalServerError, ErrServerError},
		{"bad gateway", http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.Header().Set(requestIDHeader, "req-123")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"code":"E","title":"T","detail":"something broke"}]}`))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).Do(context.Background(), http.MethodGet, "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "req-123", apiErr.RequestID)
			assert.Equal(t, "something broke", apiErr.Message)

			assert.Equal(t, int32(1), calls.Load(), "failures are never retried")
		})
	}
}

func TestDo_UnauthorizedInvalidatesCachedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tok := &countingToken{}
	client := NewClient(srv.URL, nil, tok, nil, "")

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), tok.invalidated.Load())
}

func TestDo_ForbiddenKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tok := &countingToken{}

	_, err := NewClient(srv.URL, nil, tok, nil, "").Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(0), tok.invalidated.Load())
}

func TestDo_TokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, failingToken{}, nil, "")

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}

func TestDo_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL).Do(ctx, http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_RateLimited(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.SetRateLimit(20)

	start := time.Now()

	for range 3 {
		resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
		require.NoError(t, err)
		resp.Body.Close()
	}

	// Burst of one at 20/s: the second and third calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	client.SetRateLimit(0)
	assert.Nil(t, client.limiter)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "detail", errorMessage([]byte(`{"errors":[{"title":"t","detail":"detail"}]}`)))
	assert.Equal(t, "t", errorMessage([]byte(`{"errors":[{"title":"t"}]}`)))
	assert.Equal(t, "Object not found", errorMessage([]byte(`{"reason":"Object not found"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte("plain text")))
}
