package config

import (
	"fmt"
	"io"
	"strings"
)

// secretMask replaces a configured client secret in rendered output.
const secretMask = "********"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command. The
// client secret is never printed.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	if r.FileExisted {
		ew.printf("# Effective configuration (file %q)\n\n", r.Path)
	} else {
		ew.printf("# Effective configuration (no file at %q, defaults in use)\n\n", r.Path)
	}

	renderAuthSection(ew, &r.AuthConfig)
	renderAPISection(ew, &r.APIConfig)
	renderTargetSection(ew, &r.TargetConfig)
	renderUploadSection(ew, &r.UploadConfig)
	renderLoggingSection(ew, &r.LoggingConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}

	return secretMask
}

func renderAuthSection(ew *errWriter, a *AuthConfig) {
	ew.printf("[auth]\n")
	ew.printf("  client_id     = %q\n", a.ClientID)
	ew.printf("  client_secret = %q\n", maskSecret(a.ClientSecret))

	if a.CallbackURL != "" {
		ew.printf("  callback_url  = %q\n", a.CallbackURL)
	}

	ew.printf("  scopes        = [%s]\n", joinQuoted(a.Scopes))
	ew.printf("  token_path    = %q\n", a.TokenPath)
	ew.printf("\n")
}

func renderAPISection(ew *errWriter, a *APIConfig) {
	ew.printf("[api]\n")
	ew.printf("  base_url            = %q\n", a.BaseURL)
	ew.printf("  http_timeout        = %q\n", a.HTTPTimeout)
	ew.printf("  requests_per_second = %g\n", a.RequestsPerSecond)

	if a.UserAgent != "" {
		ew.printf("  user_agent          = %q\n", a.UserAgent)
	}

	ew.printf("  default_kind        = %q\n", a.DefaultKind)
	ew.printf("\n")
}

func renderTargetSection(ew *errWriter, t *TargetConfig) {
	if t.HubID == "" && t.ProjectID == "" && t.FolderID == "" {
		return
	}

	ew.printf("[target]\n")

	if t.HubID != "" {
		ew.printf("  hub_id     = %q\n", t.HubID)
	}

	if t.ProjectID != "" {
		ew.printf("  project_id = %q\n", t.ProjectID)
	}

	if t.FolderID != "" {
		ew.printf("  folder_id  = %q\n", t.FolderID)
	}

	ew.printf("\n")
}

func renderUploadSection(ew *errWriter, u *UploadConfig) {
	ew.printf("[upload]\n")
	ew.printf("  signed_url_minutes = %d\n", u.SignedURLMinutes)
	ew.printf("  max_upload_size    = %q\n", u.MaxUploadSize)
	ew.printf("  orphan_policy      = %q\n", u.OrphanPolicy)
	ew.printf("  conflict_mode      = %q\n", u.ConflictMode)
	ew.printf("  journal_path       = %q\n", u.JournalPath)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}
