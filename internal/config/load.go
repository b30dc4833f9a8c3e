package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions: a typo in "acess_token" would otherwise surface much
// later as a confusing missing-credential error.
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
// a Config populated with all default values. Credentials may still be
// supplied through the environment in that case.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables. The config path itself
// resolves CLI > env > platform default. It returns the resolved Config and
// the path that was consulted.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, string, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	expanded, err := homedir.Expand(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("expanding config path %q: %w", cfgPath, err)
	}

	cfg, err := LoadOrDefault(expanded)
	if err != nil {
		return nil, expanded, err
	}

	env.apply(cfg)

	downloadDir, err := homedir.Expand(cfg.Transfers.DownloadDir)
	if err != nil {
		return nil, expanded, fmt.Errorf("expanding download_dir %q: %w", cfg.Transfers.DownloadDir, err)
	}

	cfg.Transfers.DownloadDir = downloadDir

	return cfg, expanded, nil
}
