// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for fileshare-go. Values resolve through
// a three-layer chain (defaults -> config file -> environment). Credentials
// have no defaults: callers check them with RequireDropbox/RequireShareFile
// before any network call is made.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Each vendor gets its own section; the remaining sections tune transport,
// transfers, and logging for both vendors.
type Config struct {
	Dropbox   DropboxConfig   `toml:"dropbox" json:"dropbox"`
	ShareFile ShareFileConfig `toml:"sharefile" json:"sharefile"`
	Network   NetworkConfig   `toml:"network" json:"network"`
	Transfers TransfersConfig `toml:"transfers" json:"transfers"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
}

// DropboxConfig holds the single long-lived access token used by every
// Dropbox call.
type DropboxConfig struct {
	AccessToken string `toml:"access_token" json:"access_token"`
}

// ShareFileConfig holds the password-grant credentials and the account's
// endpoint coordinates. ControlPlane is the regional domain the account is
// provisioned against (e.g. "sharefile.com", "sharefile.eu").
type ShareFileConfig struct {
	ControlPlane string `toml:"control_plane" json:"control_plane"`
	Username     string `toml:"username" json:"username"`
	Password     string `toml:"password" json:"password"`
	Subdomain    string `toml:"subdomain" json:"subdomain"`
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"client_secret"`
	BaseAPIURL   string `toml:"base_api_url" json:"base_api_url"`
}

// NetworkConfig controls HTTP client behavior shared by both vendors.
// MinTLSVersion replaces per-process protocol toggling: every client built
// from this config refuses anything older.
type NetworkConfig struct {
	Timeout       string `toml:"timeout" json:"timeout"`
	MinTLSVersion string `toml:"min_tls_version" json:"min_tls_version"`
	UserAgent     string `toml:"user_agent" json:"user_agent"`
}

// TransfersConfig controls upload/download throttling and the default
// download destination.
type TransfersConfig struct {
	BandwidthLimit string `toml:"bandwidth_limit" json:"bandwidth_limit"`
	DownloadDir    string `toml:"download_dir" json:"download_dir"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level" json:"log_level"`
	LogFormat string `toml:"log_format" json:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
}
