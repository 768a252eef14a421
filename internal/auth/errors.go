// Package auth manages OAuth2 credentials for the APS authentication
// service: a cached 2-legged (client credentials) token shared by the
// process, and 3-legged (authorization code) contexts owned by the caller.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrAuth is the sentinel for every failed grant. Use errors.Is(err, auth.ErrAuth).
var ErrAuth = errors.New("auth: authentication failed")

// ErrNoRefreshToken is returned by Refresh when called with an empty token.
var ErrNoRefreshToken = errors.New("auth: no refresh token")

// AuthError describes a rejected or failed grant request. StatusCode is zero
// when the request never reached the server.
type AuthError struct {
	Grant       string // client_credentials, authorization_code, refresh_token
	StatusCode  int
	Code        string // OAuth2 "error" field, e.g. invalid_client
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("auth: %s grant failed: HTTP %d: %s: %s", e.Grant, e.StatusCode, e.Code, e.Description)
	case e.StatusCode != 0:
		return fmt.Sprintf("auth: %s grant failed: HTTP %d", e.Grant, e.StatusCode)
	default:
		return fmt.Sprintf("auth: %s grant failed: %v", e.Grant, e.Err)
	}
}

// Is makes every AuthError match ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// grantError converts an error from the oauth2 library into an AuthError,
// lifting status and OAuth error code out of *oauth2.RetrieveError.
func grantError(grant string, err error) error {
	ae := &AuthError{Grant: grant, Err: err}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			ae.StatusCode = re.Response.StatusCode
		}

		ae.Code = re.ErrorCode
		ae.Description = re.ErrorDescription
	}

	return ae
}
