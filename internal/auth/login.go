package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
)

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// LoginWithBrowser runs the 3-legged authorization code flow end to end:
//  1. Binds an HTTP server on the host:port of the configured callback URL
//  2. Opens the browser at the authorization URL with a random state
//  3. Receives the redirect carrying the authorization code
//  4. Exchanges the code via ExchangeCode
//
// The redirect URI registered for the application must equal the configured
// callback URL exactly. openURL launches the browser; on failure the URL is
// printed to stderr. The caller owns the returned context and its persistence.
func (i *Issuer) LoginWithBrowser(
	ctx context.Context, openURL func(string) error,
) (*AuthContext, error) {
	cb, err := url.Parse(i.cfg.CallbackURL)
	if err != nil || cb.Host == "" {
		return nil, fmt.Errorf("auth: invalid callback URL %q", i.cfg.CallbackURL)
	}

	path := cb.Path
	if path == "" {
		path = "/"
	}

	i.logger.Info("starting browser auth flow", slog.String("callback", i.cfg.CallbackURL))

	state := uuid.NewString()
	resultCh := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})

	srv, err := startCallbackServer(ctx, cb.Host, mux, resultCh, i.logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, i.logger)

	launchBrowser(i.AuthorizationURL(state), openURL, i.logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	i.logger.Info("received authorization code, exchanging for token")

	return i.ExchangeCode(ctx, code)
}

// startCallbackServer binds addr and serves mux in the background.
func startCallbackServer(
	ctx context.Context,
	addr string,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("auth: binding callback listener %s: %w", addr, err)
	}

	logger.Info("callback server listening", slog.String("addr", listener.Addr().String()))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("auth: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, nil
}

// handleOAuthCallback validates the state, extracts the code, and sends the result.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	q := r.URL.Query()

	var res callbackResult

	switch {
	case q.Get("state") != state:
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		res.err = fmt.Errorf("auth: OAuth2 state mismatch (possible CSRF)")
	case q.Get("error") != "":
		http.Error(w, "Authorization failed: "+q.Get("error"), http.StatusBadRequest)
		res.err = &AuthError{Grant: grantAuthorizationCode, Code: q.Get("error"), Description: q.Get("error_description"),
			Err: errors.New("authorization denied")}
	case q.Get("code") == "":
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		res.err = fmt.Errorf("auth: callback missing authorization code")
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")

		res.code = q.Get("code")
	}

	// Only the first callback counts; later hits (favicon retries, reloads) are dropped.
	select {
	case resultCh <- res:
	default:
	}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL, printing it to stderr if that fails.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("auth: browser login canceled: %w", ctx.Err())
	}
}
