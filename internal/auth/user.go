package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// UserTokenSource serves a caller-owned 3-legged context to the gateway,
// refreshing it transparently once it expires. onChange receives every
// refreshed context so the caller can persist the rotated refresh token; it
// may be nil.
//
// The source binds ctx for refresh requests, so ctx must outlive it.
func (i *Issuer) UserTokenSource(ctx context.Context, ac AuthContext, onChange func(AuthContext)) *UserSource {
	cfg := i.oauthConfig()
	// Called by ReuseTokenSource after each silent refresh, outside its mutex.
	cfg.OnTokenChange = func(tok *oauth2.Token) {
		i.logger.Info("user token refreshed by oauth2 library",
			slog.Time("new_expiry", tok.Expiry),
		)

		if onChange != nil {
			onChange(FromOAuth2Token(tok))
		}
	}

	return &UserSource{
		src:    cfg.TokenSource(i.withHTTPClient(ctx), ac.OAuth2Token()),
		logger: i.logger,
	}
}

// UserSource adapts an oauth2.TokenSource to the gateway's token interface.
type UserSource struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// Token returns the current access token. The per-call ctx is unused; the
// context bound at construction governs refresh requests.
func (s *UserSource) Token(_ context.Context) (string, error) {
	t, err := s.src.Token()
	if err != nil {
		s.logger.Warn("user token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: obtaining user token: %w", grantError(grantRefreshToken, err))
	}

	s.logger.Debug("user token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t.AccessToken, nil
}
