package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/upload"
)

// Validation range constants.
const (
	minSignedURLMinutes = 1
	maxSignedURLMinutes = 60
	minHTTPTimeout      = 1 * time.Second
)

// Conflict mode values accepted by conflict_mode.
const (
	ConflictNewItem    = "new_item"
	ConflictNewVersion = "new_version"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.AuthConfig)...)
	errs = append(errs, validateAPI(&cfg.APIConfig)...)
	errs = append(errs, validateUpload(&cfg.UploadConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)

	return errors.Join(errs...)
}

// ValidateCredentials reports whether the resolved config can talk to the
// service at all. It runs after env overrides, since credentials usually
// come from APS_CLIENT_ID and APS_CLIENT_SECRET rather than the file.
func ValidateCredentials(r *Resolved) error {
	var errs []error

	if r.ClientID == "" {
		errs = append(errs, fmt.Errorf("client_id: required (set it in the config file or %s)", EnvClientID))
	}

	if r.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("client_secret: required (set it in the config file or %s)", EnvClientSecret))
	}

	return errors.Join(errs...)
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if a.CallbackURL != "" {
		errs = append(errs, validateURL("callback_url", a.CallbackURL)...)
	}

	for _, s := range a.Scopes {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t") {
			errs = append(errs, fmt.Errorf("scopes: invalid scope %q", s))
		}
	}

	return errs
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	errs = append(errs, validateURL("base_url", a.BaseURL)...)
	errs = append(errs, validateDurationMin("http_timeout", a.HTTPTimeout, minHTTPTimeout)...)

	if a.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second: must be >= 0, got %g", a.RequestsPerSecond))
	}

	if _, err := dm.KindFromName(a.DefaultKind); err != nil {
		errs = append(errs, fmt.Errorf("default_kind: must be one of core, bim360; got %q", a.DefaultKind))
	}

	return errs
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	if u.SignedURLMinutes < minSignedURLMinutes || u.SignedURLMinutes > maxSignedURLMinutes {
		errs = append(errs, fmt.Errorf("signed_url_minutes: must be between %d and %d, got %d",
			minSignedURLMinutes, maxSignedURLMinutes, u.SignedURLMinutes))
	}

	if _, err := ParseSize(u.MaxUploadSize); err != nil {
		errs = append(errs, fmt.Errorf("max_upload_size: %w", err))
	}

	switch u.OrphanPolicy {
	case upload.PolicyKeep, upload.PolicyDelete:
	default:
		errs = append(errs, fmt.Errorf("orphan_policy: must be one of %s, %s; got %q",
			upload.PolicyKeep, upload.PolicyDelete, u.OrphanPolicy))
	}

	switch u.ConflictMode {
	case ConflictNewItem, ConflictNewVersion:
	default:
		errs = append(errs, fmt.Errorf("conflict_mode: must be one of %s, %s; got %q",
			ConflictNewItem, ConflictNewVersion, u.ConflictMode))
	}

	return errs
}

func validateURL(field, value string) []error {
	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid URL %q: %w", field, value, err)}
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return []error{fmt.Errorf("%s: must be an http or https URL, got %q", field, value)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("%s: missing host in %q", field, value)}
	}

	return nil
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
