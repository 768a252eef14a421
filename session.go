package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/apsdm-go/internal/auth"
	"github.com/tonimelisma/apsdm-go/internal/config"
	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/folders"
	"github.com/tonimelisma/apsdm-go/internal/journal"
	"github.com/tonimelisma/apsdm-go/internal/tokenfile"
	"github.com/tonimelisma/apsdm-go/internal/upload"
)

// Values accepted by --auth.
const (
	authAuto = "auto"
	authApp  = "app"
	authUser = "user"
)

var errNotLoggedIn = errors.New("not logged in, run 'apsdm login' first")

// timeNow is the clock for saved-token checks. Tests override it.
var timeNow = time.Now

// Session holds the authenticated client for one command run, plus the
// resolved config it was built from.
type Session struct {
	Client   *dm.Client
	Issuer   *auth.Issuer
	Resolved *config.Resolved
	Mode     string // authApp or authUser
	tokens   dm.TokenSource
	logger   *slog.Logger
}

// newIssuer builds the token issuer for the resolved credentials.
func newIssuer(r *config.Resolved, logger *slog.Logger) *auth.Issuer {
	return auth.NewIssuer(auth.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		CallbackURL:  r.CallbackURL,
		Scopes:       r.Scopes,
		BaseURL:      r.BaseURL,
	}, auth.NewStore(), newHTTPClient(), logger)
}

// NewSession creates the metadata client, choosing the credential per mode.
// ctx must outlive the session: user tokens refresh under it.
func NewSession(ctx context.Context, r *config.Resolved, mode string, logger *slog.Logger) (*Session, error) {
	if err := config.ValidateCredentials(r); err != nil {
		return nil, err
	}

	issuer := newIssuer(r, logger)

	ts, used, err := pickTokenSource(ctx, issuer, r.TokenPath, mode, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("session credential selected", slog.String("mode", used))

	userAgent := r.UserAgent
	if userAgent == "" {
		userAgent = "apsdm/" + version
	}

	client := dm.NewClient(r.BaseURL, newHTTPClient(), ts, logger, userAgent)
	client.SetTransferClient(newTransferHTTPClient())
	client.SetRateLimit(r.RequestsPerSecond)

	return &Session{
		Client:   client,
		Issuer:   issuer,
		Resolved: r,
		Mode:     used,
		tokens:   ts,
		logger:   logger,
	}, nil
}

// pickTokenSource returns the 2-legged issuer or a saved user login. In
// auto mode a saved login wins when it can still be used or refreshed.
func pickTokenSource(
	ctx context.Context, issuer *auth.Issuer, tokenPath, mode string, logger *slog.Logger,
) (dm.TokenSource, string, error) {
	switch mode {
	case authApp:
		return issuer, authApp, nil
	case authUser, authAuto:
	default:
		return nil, "", fmt.Errorf("invalid --auth %q (want %s, %s or %s)", mode, authApp, authUser, authAuto)
	}

	ac, _, err := tokenfile.Load(tokenPath)
	if err != nil {
		if mode == authUser {
			return nil, "", err
		}

		logger.Warn("ignoring unreadable saved login", slog.String("error", err.Error()))
		ac = nil
	}

	if ac == nil || (ac.RefreshToken == "" && !ac.ValidAt(timeNow(), 0)) {
		if mode == authUser {
			return nil, "", errNotLoggedIn
		}

		return issuer, authApp, nil
	}

	persist := func(next auth.AuthContext) {
		if err := tokenfile.Replace(tokenPath, next); err != nil {
			logger.Warn("failed to save refreshed token", slog.String("error", err.Error()))
		}
	}

	return issuer.UserTokenSource(ctx, *ac, persist), authUser, nil
}

// requireTarget returns value or an error naming the flag and config key
// that would supply it.
func requireTarget(value, flag, key string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("no %s given: pass --%s or set %s in the config file", flag, flag, key)
	}

	return value, nil
}

func (s *Session) hubID() (string, error) {
	return requireTarget(s.Resolved.HubID, "hub", "hub_id")
}

func (s *Session) projectID() (string, error) {
	return requireTarget(s.Resolved.ProjectID, "project", "project_id")
}

func (s *Session) folderID() (string, error) {
	return requireTarget(s.Resolved.FolderID, "folder", "folder_id")
}

// Navigator returns a folder navigator over the session's client.
func (s *Session) Navigator() *folders.Navigator {
	return folders.NewNavigator(s.Client, dm.NewTypeResolver(s.Resolved.Kind), s.logger)
}

// Orchestrator returns an upload orchestrator recording into j, which may
// be nil.
func (s *Session) Orchestrator(j *journal.Journal, conflict upload.ConflictMode) (*upload.Orchestrator, error) {
	orphans, err := upload.NewOrphanPolicy(s.Resolved.OrphanPolicy, s.Client, s.logger)
	if err != nil {
		return nil, err
	}

	// max_upload_size = 0 means no limit.
	maxSize := s.Resolved.MaxSize
	if maxSize == 0 {
		maxSize = -1
	}

	opts := upload.Options{
		SignedURLMinutes: s.Resolved.SignedURLMinutes,
		MaxSize:          maxSize,
		Conflict:         conflict,
		Resolver:         dm.NewTypeResolver(s.Resolved.Kind),
		Orphans:          orphans,
	}

	// A nil *Journal in the interface would not compare equal to nil.
	if j != nil {
		opts.Recorder = j
	}

	return upload.NewOrchestrator(s.Client, s.logger, opts), nil
}

// openJournal opens the upload journal at the configured path.
func openJournal(ctx context.Context, logger *slog.Logger) (*journal.Journal, error) {
	j, err := journal.Open(ctx, resolvedCfg.JournalPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening upload journal: %w", err)
	}

	return j, nil
}
