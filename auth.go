package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/auth"
	"github.com/tonimelisma/apsdm-go/internal/config"
	"github.com/tonimelisma/apsdm-go/internal/tokenfile"
)

// Token file metadata keys recorded at login.
const (
	metaClientID = "client_id"
	metaUserID   = "user_id"
	metaScopes   = "scopes"
	metaSavedAt  = "saved_at"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in as a user through the browser and save the token",
		Long: `Sign in with the 3-legged authorization code flow. A local server on the
configured callback_url receives the redirect; the URL must match the one
registered for the app exactly.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved user token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Low-level token operations",
	}

	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL for a manual 3-legged login",
		Args:  cobra.NoArgs,
		RunE:  runAuthURL,
	}
	urlCmd.Flags().String("state", "", "opaque state echoed back on the redirect (default: random)")

	exchangeCmd := &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code and save the user token",
		Args:  cobra.ExactArgs(1),
		RunE:  runAuthExchange,
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the saved user token now",
		Args:  cobra.NoArgs,
		RunE:  runAuthRefresh,
	}

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token for the selected credential",
		Args:  cobra.NoArgs,
		RunE:  runAuthToken,
	}
	tokenCmd.Flags().Bool("inspect", false, "print decoded claims instead of the token")

	cmd.AddCommand(urlCmd, exchangeCmd, refreshCmd, tokenCmd)

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	if err := requireAppCredentials(); err != nil {
		return err
	}

	if resolvedCfg.CallbackURL == "" {
		return errors.New("callback_url is not configured (set it in the config file or " +
			"APS_CALLBACK_URL)")
	}

	issuer := newIssuer(resolvedCfg, logger)

	ac, err := issuer.LoginWithBrowser(ctx, openBrowser)
	if err != nil {
		return err
	}

	if err := saveUserToken(resolvedCfg.TokenPath, ac); err != nil {
		return err
	}

	logger.Info("login successful", slog.String("token_path", resolvedCfg.TokenPath))
	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	removed, err := tokenfile.Remove(resolvedCfg.TokenPath)
	if err != nil {
		return err
	}

	if !removed {
		statusf("Not logged in.\n")
		return nil
	}

	logger.Info("logout successful", slog.String("token_path", resolvedCfg.TokenPath))
	statusf("Logged out.\n")

	return nil
}

func runAuthURL(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if resolvedCfg.ClientID == "" {
		return fmt.Errorf("client_id is not configured")
	}

	state, err := cmd.Flags().GetString("state")
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("state") {
		state = uuid.NewString()
		statusf("state: %s\n", state)
	}

	fmt.Println(newIssuer(resolvedCfg, logger).AuthorizationURL(state))

	return nil
}

func runAuthExchange(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	if err := requireAppCredentials(); err != nil {
		return err
	}

	ac, err := newIssuer(resolvedCfg, logger).ExchangeCode(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := saveUserToken(resolvedCfg.TokenPath, ac); err != nil {
		return err
	}

	statusf("Token saved to %s\n", resolvedCfg.TokenPath)

	return nil
}

func runAuthRefresh(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := requireAppCredentials(); err != nil {
		return err
	}

	saved, _, err := tokenfile.Load(resolvedCfg.TokenPath)
	if err != nil {
		return err
	}

	if saved == nil {
		return errNotLoggedIn
	}

	ac, err := newIssuer(resolvedCfg, logger).Refresh(cmd.Context(), saved.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrNoRefreshToken) {
			return fmt.Errorf("saved token cannot be refreshed, run 'apsdm login' again: %w", err)
		}

		return err
	}

	if err := tokenfile.Replace(resolvedCfg.TokenPath, *ac); err != nil {
		return err
	}

	statusf("Token refreshed, valid until %s\n", ac.ExpiresAt.Local().Format(time.RFC3339))

	return nil
}

// tokenOutput is the JSON schema for `auth token --json`.
type tokenOutput struct {
	Mode        string    `json:"mode"`
	AccessToken string    `json:"access_token,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Scopes      []string  `json:"scopes,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

func runAuthToken(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	inspect, err := cmd.Flags().GetBool("inspect")
	if err != nil {
		return err
	}

	s, err := NewSession(ctx, resolvedCfg, flagAuthMode, logger)
	if err != nil {
		return err
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	out := tokenOutput{Mode: s.Mode}

	if inspect {
		claims, err := auth.InspectToken(token)
		if err != nil {
			return fmt.Errorf("decoding token: %w", err)
		}

		out.ClientID = claims.ClientID
		out.UserID = claims.UserID
		out.Scopes = claims.Scopes
		out.ExpiresAt = claims.ExpiresAt
	} else {
		out.AccessToken = token
	}

	if flagJSON {
		return printJSON(out)
	}

	if !inspect {
		fmt.Println(token)
		return nil
	}

	fmt.Printf("Mode:      %s\n", out.Mode)
	fmt.Printf("Client ID: %s\n", out.ClientID)

	if out.UserID != "" {
		fmt.Printf("User ID:   %s\n", out.UserID)
	}

	fmt.Printf("Scopes:    %s\n", strings.Join(out.Scopes, " "))
	fmt.Printf("Expires:   %s\n", out.ExpiresAt.Local().Format(time.RFC3339))

	return nil
}

// requireAppCredentials checks that client id and secret are configured.
func requireAppCredentials() error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	return config.ValidateCredentials(resolvedCfg)
}

// saveUserToken writes a fresh login with metadata read from the token's
// claims. Claims are informational, so an opaque token is saved without them.
func saveUserToken(path string, ac *auth.AuthContext) error {
	meta := map[string]string{
		metaSavedAt: timeNow().UTC().Format(time.RFC3339),
	}

	if claims, err := auth.InspectToken(ac.AccessToken); err == nil {
		meta[metaClientID] = claims.ClientID
		meta[metaUserID] = claims.UserID
		meta[metaScopes] = strings.Join(claims.Scopes, " ")
	}

	return tokenfile.Save(path, ac, meta)
}

// openBrowser launches the platform URL opener without waiting for it.
func openBrowser(url string) error {
	var name string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "linux":
		name = "xdg-open"
	default:
		return fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}

	c := exec.Command(name, url) //nolint:gosec // fixed opener binary
	c.Stderr = os.Stderr

	return c.Start()
}
