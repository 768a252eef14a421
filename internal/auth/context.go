package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// AuthContext is one issued credential. It is replaced whole, never
// updated field by field.
type AuthContext struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

// ValidAt reports whether the access token can still be used at now with the
// given safety margin before ExpiresAt. A zero ExpiresAt is never valid.
func (a AuthContext) ValidAt(now time.Time, margin time.Duration) bool {
	if a.AccessToken == "" || a.ExpiresAt.IsZero() {
		return false
	}

	return now.Before(a.ExpiresAt.Add(-margin))
}

// OAuth2Token converts the context into the oauth2 library's token type.
func (a AuthContext) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
	}
}

// FromOAuth2Token builds an AuthContext from a token response. When the
// response carried no expires_in, the JWT exp claim of the access token is
// used instead.
func FromOAuth2Token(tok *oauth2.Token) AuthContext {
	ac := AuthContext{
		AccessToken:  tok.AccessToken,
		ExpiresAt:    tok.Expiry,
		RefreshToken: tok.RefreshToken,
	}

	if ac.ExpiresAt.IsZero() {
		if exp, ok := JWTExpiry(tok.AccessToken); ok {
			ac.ExpiresAt = exp
		}
	}

	return ac
}

// Claims is the subset of APS access token claims shown by the CLI.
type Claims struct {
	ClientID  string
	Scopes    []string
	UserID    string
	ExpiresAt time.Time
}

// apsClaims mirrors the JWT body of an APS access token.
type apsClaims struct {
	ClientID string   `json:"client_id"`
	Scope    []string `json:"scope"`
	UserID   string   `json:"userid"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of an access token without verifying the
// signature. Only the issuing service can verify it; this is for display.
func InspectToken(accessToken string) (*Claims, error) {
	var c apsClaims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &c); err != nil {
		return nil, err
	}

	out := &Claims{
		ClientID: c.ClientID,
		Scopes:   c.Scope,
		UserID:   c.UserID,
	}

	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}

	return out, nil
}

// JWTExpiry returns the exp claim of an access token, if it is a JWT.
func JWTExpiry(accessToken string) (time.Time, bool) {
	c, err := InspectToken(accessToken)
	if err != nil || c.ExpiresAt.IsZero() {
		return time.Time{}, false
	}

	return c.ExpiresAt, true
}
