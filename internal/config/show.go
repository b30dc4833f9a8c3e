package config

import (
	"fmt"
	"io"
)

// redacted replaces secret values in rendered output.
const redacted = "********"

// RenderEffective writes the resolved configuration as a human-readable
// summary to w. This powers the "config show" command. Secrets are never
// printed; a set secret shows as a mask, an unset one as "".
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	renderDropboxSection(ew, &cfg.Dropbox)
	renderShareFileSection(ew, &cfg.ShareFile)
	renderNetworkSection(ew, &cfg.Network)
	renderTransfersSection(ew, &cfg.Transfers)
	renderLoggingSection(ew, &cfg.Logging)

	return ew.err
}

// Redacted returns a copy of cfg with every secret masked, for JSON output.
func Redacted(cfg *Config) *Config {
	out := *cfg
	out.Dropbox.AccessToken = mask(cfg.Dropbox.AccessToken)
	out.ShareFile.Password = mask(cfg.ShareFile.Password)
	out.ShareFile.ClientSecret = mask(cfg.ShareFile.ClientSecret)

	return &out
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return redacted
}

func renderDropboxSection(ew *errWriter, d *DropboxConfig) {
	ew.printf("[dropbox]\n")
	ew.printf("  access_token = %q\n", mask(d.AccessToken))
	ew.printf("\n")
}

func renderShareFileSection(ew *errWriter, s *ShareFileConfig) {
	ew.printf("[sharefile]\n")
	ew.printf("  control_plane = %q\n", s.ControlPlane)
	ew.printf("  username      = %q\n", s.Username)
	ew.printf("  password      = %q\n", mask(s.Password))
	ew.printf("  subdomain     = %q\n", s.Subdomain)
	ew.printf("  client_id     = %q\n", s.ClientID)
	ew.printf("  client_secret = %q\n", mask(s.ClientSecret))
	ew.printf("  base_api_url  = %q\n", s.BaseAPIURL)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("[network]\n")
	ew.printf("  timeout         = %q\n", n.Timeout)
	ew.printf("  min_tls_version = %q\n", n.MinTLSVersion)
	ew.printf("  user_agent      = %q\n", n.UserAgent)
	ew.printf("\n")
}

func renderTransfersSection(ew *errWriter, t *TransfersConfig) {
	ew.printf("[transfers]\n")
	ew.printf("  bandwidth_limit = %q\n", t.BandwidthLimit)
	ew.printf("  download_dir    = %q\n", t.DownloadDir)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
}
