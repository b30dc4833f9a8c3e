package config

import "os"

// Environment variable names for overrides. Secrets are the main reason
// these exist: CI and containers inject them without writing a file.
const (
	EnvConfig                = "FILESHARE_GO_CONFIG"
	EnvDropboxAccessToken    = "FILESHARE_DROPBOX_ACCESS_TOKEN"
	EnvShareFileUsername     = "FILESHARE_SHAREFILE_USERNAME"
	EnvShareFilePassword     = "FILESHARE_SHAREFILE_PASSWORD"
	EnvShareFileClientSecret = "FILESHARE_SHAREFILE_CLIENT_SECRET"
)

// EnvOverrides holds values derived from environment variables.
// Empty fields mean "not set" and leave the file value untouched.
type EnvOverrides struct {
	ConfigPath            string
	DropboxAccessToken    string
	ShareFileUsername     string
	ShareFilePassword     string
	ShareFileClientSecret string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:            os.Getenv(EnvConfig),
		DropboxAccessToken:    os.Getenv(EnvDropboxAccessToken),
		ShareFileUsername:     os.Getenv(EnvShareFileUsername),
		ShareFilePassword:     os.Getenv(EnvShareFilePassword),
		ShareFileClientSecret: os.Getenv(EnvShareFileClientSecret),
	}
}

// apply copies every non-empty override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.DropboxAccessToken != "" {
		cfg.Dropbox.AccessToken = e.DropboxAccessToken
	}

	if e.ShareFileUsername != "" {
		cfg.ShareFile.Username = e.ShareFileUsername
	}

	if e.ShareFilePassword != "" {
		cfg.ShareFile.Password = e.ShareFilePassword
	}

	if e.ShareFileClientSecret != "" {
		cfg.ShareFile.ClientSecret = e.ShareFileClientSecret
	}
}
