package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minTimeout = 1 * time.Second
	maxTimeout = 30 * time.Minute
)

// tlsVersions maps the accepted min_tls_version strings to crypto/tls
// constants. Anything older than TLS 1.2 is refused outright.
var tlsVersions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "text": true, "json": true,
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass. Credentials are
// not checked here; see RequireDropbox and RequireShareFile.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateShareFile(&cfg.ShareFile)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateTransfers(&cfg.Transfers)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateShareFile(s *ShareFileConfig) []error {
	if s.BaseAPIURL == "" {
		return nil
	}

	u, err := url.Parse(s.BaseAPIURL)
	if err != nil {
		return []error{fmt.Errorf("base_api_url: %w", err)}
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return []error{fmt.Errorf("base_api_url: must be an http(s) URL, got %q", s.BaseAPIURL)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("base_api_url: missing host in %q", s.BaseAPIURL)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	d, err := time.ParseDuration(n.Timeout)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	case d < minTimeout || d > maxTimeout:
		errs = append(errs, fmt.Errorf("timeout: must be between %s and %s, got %s", minTimeout, maxTimeout, d))
	}

	if _, ok := tlsVersions[n.MinTLSVersion]; !ok {
		errs = append(errs, fmt.Errorf("min_tls_version: must be \"1.2\" or \"1.3\", got %q", n.MinTLSVersion))
	}

	return errs
}

func validateTransfers(t *TransfersConfig) []error {
	var errs []error

	if _, err := ParseRate(t.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	if t.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir: must not be empty"))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

// TimeoutDuration returns the parsed network timeout. Validate guarantees
// the value parses; an unparsable value falls back to the default.
func (n NetworkConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultTimeout)
	}

	return d
}

// TLSVersion returns the crypto/tls constant for MinTLSVersion, defaulting
// to TLS 1.2 for unknown values.
func (n NetworkConfig) TLSVersion() uint16 {
	if v, ok := tlsVersions[n.MinTLSVersion]; ok {
		return v
	}

	return tls.VersionTLS12
}
