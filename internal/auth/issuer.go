package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the APS host serving both authentication and data APIs.
const DefaultBaseURL = "https://developer.api.autodesk.com"

// Endpoint paths relative to the base URL.
const (
	authorizePath = "/authentication/v2/authorize"
	tokenPath     = "/authentication/v2/token"
)

// Grant type names, used in errors and logs.
const (
	grantClientCredentials = "client_credentials"
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// ExpiryMargin is subtracted from a cached token's expiry before it is
// reused, absorbing clock skew and in-flight request latency.
const ExpiryMargin = 5 * time.Minute

// DefaultScopes is requested when Config.Scopes is empty.
var DefaultScopes = []string{
	"data:read",
	"data:write",
	"data:create",
	"bucket:read",
	"bucket:create",
}

// Config identifies the application to the authorization server.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string   // redirect URI for 3-legged flows
	Scopes       []string // DefaultScopes when empty
	BaseURL      string   // DefaultBaseURL when empty
}

func (c Config) scopes() []string {
	if len(c.Scopes) == 0 {
		return DefaultScopes
	}

	return c.Scopes
}

func (c Config) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}

	return strings.TrimRight(c.BaseURL, "/")
}

// Issuer runs the OAuth2 grants. The 2-legged token is cached in the
// injected Store; 3-legged contexts are returned to the caller and never
// cached here, because they belong to one end user rather than the process.
type Issuer struct {
	cfg        Config
	store      *Store
	httpClient *http.Client
	logger     *slog.Logger

	// nowFunc is the clock used for cache validity. Tests override it.
	nowFunc func() time.Time
}

// NewIssuer creates an Issuer. A nil store gets a private one.
func NewIssuer(cfg Config, store *Store, httpClient *http.Client, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if store == nil {
		store = NewStore()
	}

	return &Issuer{
		cfg:        cfg,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// oauthConfig builds the 3-legged oauth2.Config. Credentials go in the
// Authorization header; auto-detection would resend a rejected grant.
func (i *Issuer) oauthConfig() *oauth2.Config {
	base := i.cfg.baseURL()

	return &oauth2.Config{
		ClientID:     i.cfg.ClientID,
		ClientSecret: i.cfg.ClientSecret,
		RedirectURL:  i.cfg.CallbackURL,
		Scopes:       i.cfg.scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + authorizePath,
			TokenURL:  base + tokenPath,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// withHTTPClient makes the oauth2 library use the injected HTTP client.
func (i *Issuer) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)
}

// Token returns a 2-legged access token, reusing the cached one while it is
// valid for at least ExpiryMargin. Concurrent callers racing past expiry may
// each run a grant; the last to finish owns the cache.
func (i *Issuer) Token(ctx context.Context) (string, error) {
	if ac, ok := i.store.Get(); ok && ac.ValidAt(i.nowFunc(), ExpiryMargin) {
		return ac.AccessToken, nil
	}

	ac, err := i.clientCredentials(ctx)
	if err != nil {
		return "", err
	}

	i.store.Replace(ac)

	return ac.AccessToken, nil
}

// Invalidate drops the cached 2-legged token. The gateway calls it when the
// metadata service rejects a token before its advertised expiry.
func (i *Issuer) Invalidate() {
	i.logger.Info("invalidating cached app token")
	i.store.Invalidate()
}

func (i *Issuer) clientCredentials(ctx context.Context) (AuthContext, error) {
	cc := clientcredentials.Config{
		ClientID:     i.cfg.ClientID,
		ClientSecret: i.cfg.ClientSecret,
		TokenURL:     i.cfg.baseURL() + tokenPath,
		Scopes:       i.cfg.scopes(),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	i.logger.Debug("requesting app token",
		slog.String("grant", grantClientCredentials),
		slog.String("scopes", strings.Join(cc.Scopes, " ")),
	)

	tok, err := cc.Token(i.withHTTPClient(ctx))
	if err != nil {
		i.logger.Warn("app token grant failed", slog.String("error", err.Error()))
		return AuthContext{}, grantError(grantClientCredentials, err)
	}

	ac := FromOAuth2Token(tok)

	i.logger.Info("app token issued", slog.Time("expiry", ac.ExpiresAt))

	return ac, nil
}

// AuthorizationURL returns the URL a user visits to grant access. The
// output is deterministic for a given config and state; an empty state is
// omitted from the query.
func (i *Issuer) AuthorizationURL(state string) string {
	return i.oauthConfig().AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a 3-legged AuthContext.
func (i *Issuer) ExchangeCode(ctx context.Context, code string) (*AuthContext, error) {
	if i.cfg.CallbackURL == "" {
		return nil, fmt.Errorf("auth: exchanging code: callback URL not configured")
	}

	tok, err := i.oauthConfig().Exchange(i.withHTTPClient(ctx), code)
	if err != nil {
		i.logger.Warn("code exchange failed", slog.String("error", err.Error()))
		return nil, grantError(grantAuthorizationCode, err)
	}

	ac := FromOAuth2Token(tok)

	i.logger.Info("user token issued",
		slog.Time("expiry", ac.ExpiresAt),
		slog.Bool("refreshable", ac.RefreshToken != ""),
	)

	return &ac, nil
}

// Refresh uses a refresh token to obtain a new 3-legged AuthContext. APS
// rotates refresh tokens, so callers must persist the returned one.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (*AuthContext, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	src := i.oauthConfig().TokenSource(i.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		i.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return nil, grantError(grantRefreshToken, err)
	}

	ac := FromOAuth2Token(tok)

	i.logger.Info("user token refreshed", slog.Time("expiry", ac.ExpiresAt))

	return &ac, nil
}
