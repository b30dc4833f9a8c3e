package config

// Default values for configuration options. Credentials are deliberately
// absent: a missing token or password must fail, not fall back.
const (
	defaultTimeout        = "30s"
	defaultMinTLSVersion  = "1.2"
	defaultUserAgent      = "fileshare-go/0.1"
	defaultBandwidthLimit = "0"
	defaultDownloadDir    = "DownloadedFiles"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:       defaultTimeout,
			MinTLSVersion: defaultMinTLSVersion,
			UserAgent:     defaultUserAgent,
		},
		Transfers: TransfersConfig{
			BandwidthLimit: defaultBandwidthLimit,
			DownloadDir:    defaultDownloadDir,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
