package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/upload"
)

// Resolved is the effective configuration after every override layer, with
// string values parsed into the types the rest of the program consumes.
type Resolved struct {
	Config

	// Path is the config file that was consulted. The file need not exist.
	Path string

	Timeout     time.Duration
	MaxSize     int64
	Kind        dm.Kind
	Conflict    upload.ConflictMode
	FileExisted bool
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. The boolean reports whether
// the file was found.
func LoadOrDefault(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), false, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}

	return cfg, true, nil
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// Config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, existed, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, env)
	applyCLI(cfg, cli)

	r := &Resolved{Config: *cfg, Path: cfgPath, FileExisted: existed}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return r, nil
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.ClientID != "" {
		cfg.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.ClientSecret = env.ClientSecret
	}

	if env.CallbackURL != "" {
		cfg.CallbackURL = env.CallbackURL
	}
}

func applyCLI(cfg *Config, cli CLIOverrides) {
	if cli.HubID != nil {
		cfg.HubID = *cli.HubID
	}

	if cli.ProjectID != nil {
		cfg.ProjectID = *cli.ProjectID
	}

	if cli.FolderID != nil {
		cfg.FolderID = *cli.FolderID
	}
}

// finish fills path defaults and parses typed values. Everything it parses
// has already passed Validate, except values that env overrides replaced.
func (r *Resolved) finish() error {
	if err := Validate(&r.Config); err != nil {
		return err
	}

	if r.TokenPath == "" {
		r.TokenPath = DefaultTokenPath()
	}

	if r.JournalPath == "" {
		r.JournalPath = DefaultJournalPath()
	}

	r.TokenPath = expandHome(r.TokenPath)
	r.JournalPath = expandHome(r.JournalPath)

	var err error

	if r.Timeout, err = time.ParseDuration(r.HTTPTimeout); err != nil {
		return fmt.Errorf("http_timeout: %w", err)
	}

	if r.MaxSize, err = ParseSize(r.MaxUploadSize); err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}

	if r.Kind, err = dm.KindFromName(r.DefaultKind); err != nil {
		return fmt.Errorf("default_kind: %w", err)
	}

	if r.ConflictMode == ConflictNewVersion {
		r.Conflict = upload.ConflictNewVersion
	}

	return nil
}
