package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions is owner-only because the file may hold the client
// secret.
const configFilePermissions = 0o600

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o700

// ErrConfigExists is returned by WriteTemplate when the target already exists.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is the config file written by "config init". Every setting
// is present as a commented-out default so users can discover every option
// without reading docs.
const configTemplate = `# apsdm configuration
# Uncomment and modify to override defaults.

# ── Credentials ──
# Usually supplied through APS_CLIENT_ID / APS_CLIENT_SECRET instead.
# client_id = ""
# client_secret = ""

# Redirect URI registered for the app; required for "apsdm login".
# callback_url = "http://localhost:8080/callback"

# scopes = ["data:read", "data:write", "data:create", "bucket:read", "bucket:create"]

# ── API ──
# base_url = "https://developer.api.autodesk.com"
# http_timeout = "60s"

# Client-side request rate limit; 0 disables it.
# requests_per_second = 0

# Kind assumed under folders whose extension type is not recognized: bim360, core
# default_kind = "bim360"

# ── Default targets ──
# hub_id = ""
# project_id = ""
# folder_id = ""

# ── Uploads ──
# signed_url_minutes = 30
# max_upload_size = "5GiB"

# What to do with the storage object of a failed upload: keep, delete
# orphan_policy = "keep"

# When an item with the same name exists: new_item, new_version
# conflict_mode = "new_item"

# ── Logging ──
# Log verbosity: debug, info, warn, error
# log_level = "info"

# auto picks text on a terminal and JSON otherwise: auto, text, json
# log_format = "auto"
`

// WriteTemplate creates a new config file from the default template. It
// refuses to overwrite an existing file. The write is atomic (temp file +
// rename) and parent directories are created as needed.
func WriteTemplate(path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	logger.Info("creating config file", slog.String("path", path))

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
