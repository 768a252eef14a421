package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "APSDM_CONFIG"
	EnvClientID     = "APS_CLIENT_ID"
	EnvClientSecret = "APS_CLIENT_SECRET"
	EnvCallbackURL  = "APS_CALLBACK_URL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // APSDM_CONFIG: config file path
	ClientID     string // APS_CLIENT_ID
	ClientSecret string // APS_CLIENT_SECRET
	CallbackURL  string // APS_CALLBACK_URL
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		CallbackURL:  os.Getenv(EnvCallbackURL),
	}
}
