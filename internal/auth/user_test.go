package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTokenSource_ValidTokenNoRefresh(t *testing.T) {
	ts := newTokenServer(t, nil)
	iss := newTestIssuer(t, ts.srv.URL)

	src := iss.UserTokenSource(context.Background(), AuthContext{
		AccessToken:  "user-token",
		RefreshToken: "user-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-token", tok)
	assert.Equal(t, int32(0), ts.grants.Load())
}

func TestUserTokenSource_RefreshesExpired(t *testing.T) {
	ts := newTokenServer(t, nil)
	iss := newTestIssuer(t, ts.srv.URL)

	var changed []AuthContext

	src := iss.UserTokenSource(context.Background(), AuthContext{
		AccessToken:  "stale",
		RefreshToken: "user-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}, func(ac AuthContext) { changed = append(changed, ac) })

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, "refresh_token", ts.lastForm().Get("grant_type"))

	require.Len(t, changed, 1)
	assert.Equal(t, "refresh-1", changed[0].RefreshToken)
}
