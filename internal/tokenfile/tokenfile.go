// Package tokenfile persists a user's 3-legged credential for the CLI. The
// library never stores tokens itself; this is the caller-side persistence
// the login, auth and browse commands share.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"github.com/tonimelisma/apsdm-go/internal/auth"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// File is the on-disk format: the credential plus metadata cached at login
// (user id, client id, granted scopes).
type File struct {
	Auth *auth.AuthContext `json:"auth"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Load reads a saved credential. Returns (nil, nil, nil) if the file does
// not exist.
func Load(path string) (*auth.AuthContext, map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil //nolint:nilnil // sentinel for "not logged in"
	}

	if err != nil {
		return nil, nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Auth == nil || tf.Auth.AccessToken == "" {
		return nil, nil, fmt.Errorf("tokenfile: %s missing credential (login required)", path)
	}

	return tf.Auth, tf.Meta, nil
}

// Save writes the credential atomically (temp file + rename) with 0600
// permissions.
func Save(path string, ac *auth.AuthContext, meta map[string]string) error {
	if ac == nil {
		return errors.New("tokenfile: nil credential")
	}

	data, err := json.MarshalIndent(File{Auth: ac, Meta: meta}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Replace swaps the stored credential for ac, keeping the existing
// metadata. Used to persist refreshed tokens.
func Replace(path string, ac auth.AuthContext) error {
	_, meta, err := Load(path)
	if err != nil {
		return err
	}

	return Save(path, &ac, meta)
}

// MergeMeta merges keys into the stored metadata (new keys overwrite).
// The file must already hold a credential.
func MergeMeta(path string, meta map[string]string) error {
	ac, existing, err := Load(path)
	if err != nil {
		return fmt.Errorf("tokenfile: reading for metadata update: %w", err)
	}

	if ac == nil {
		return fmt.Errorf("tokenfile: no credential at %s", path)
	}

	if existing == nil {
		existing = make(map[string]string, len(meta))
	}

	maps.Copy(existing, meta)

	return Save(path, ac, existing)
}

// Remove deletes the token file. A missing file is not an error.
func Remove(path string) (removed bool, err error) {
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return true, nil
}
