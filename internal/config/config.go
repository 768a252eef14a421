// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for apsdm. Values resolve through four
// layers: defaults, config file, environment, CLI flags.
package config

// Config is the top-level configuration parsed from a TOML file. All keys
// are flat; the embedded structs only group them.
type Config struct {
	AuthConfig
	APIConfig
	TargetConfig
	UploadConfig
	LoggingConfig
}

// AuthConfig holds the application credentials registered with APS.
type AuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	CallbackURL  string   `toml:"callback_url"`
	Scopes       []string `toml:"scopes"`
	TokenPath    string   `toml:"token_path"`
}

// APIConfig controls how the service is reached.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	HTTPTimeout       string  `toml:"http_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`

	// DefaultKind is the extension kind used under folders whose own kind
	// is missing or unrecognized: "bim360" or "core".
	DefaultKind string `toml:"default_kind"`
}

// TargetConfig names the hub, project and folder commands use when no flag
// is given.
type TargetConfig struct {
	HubID     string `toml:"hub_id"`
	ProjectID string `toml:"project_id"`
	FolderID  string `toml:"folder_id"`
}

// UploadConfig controls the upload pipeline.
type UploadConfig struct {
	SignedURLMinutes int    `toml:"signed_url_minutes"`
	MaxUploadSize    string `toml:"max_upload_size"`
	OrphanPolicy     string `toml:"orphan_policy"`
	ConflictMode     string `toml:"conflict_mode"`
	JournalPath      string `toml:"journal_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit empty value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	HubID      *string // --hub
	ProjectID  *string // --project
	FolderID   *string // --folder
}
