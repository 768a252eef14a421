package config

import (
	"github.com/tonimelisma/apsdm-go/internal/auth"
	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// Default values: layer 0 of the override chain.
const (
	defaultHTTPTimeout      = "60s"
	defaultDefaultKind      = "bim360"
	defaultMaxUploadSize    = "5GiB"
	defaultOrphanPolicy     = "keep"
	defaultConflictMode     = "new_item"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultSignedURLMinutes = dm.DefaultSignedURLMinutes
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		AuthConfig: AuthConfig{
			Scopes: append([]string(nil), auth.DefaultScopes...),
		},
		APIConfig: APIConfig{
			BaseURL:     dm.DefaultBaseURL,
			HTTPTimeout: defaultHTTPTimeout,
			DefaultKind: defaultDefaultKind,
		},
		UploadConfig: UploadConfig{
			SignedURLMinutes: defaultSignedURLMinutes,
			MaxUploadSize:    defaultMaxUploadSize,
			OrphanPolicy:     defaultOrphanPolicy,
			ConflictMode:     defaultConflictMode,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
