package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSetting is the sentinel for a required setting that is absent or
// empty. Use errors.Is(err, config.ErrMissingSetting) to detect it.
var ErrMissingSetting = errors.New("config: required setting missing")

// MissingKeysError names every required key that was empty, so one run
// reports all of them.
type MissingKeysError struct {
	Section string
	Keys    []string
}

func (e *MissingKeysError) Error() string {
	qualified := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		qualified[i] = e.Section + "." + k
	}

	return fmt.Sprintf("config: missing required setting(s): %s", strings.Join(qualified, ", "))
}

func (e *MissingKeysError) Unwrap() error {
	return ErrMissingSetting
}

// RequireDropbox fails fast when the Dropbox access token is not configured.
func (c *Config) RequireDropbox() error {
	if strings.TrimSpace(c.Dropbox.AccessToken) == "" {
		return &MissingKeysError{Section: "dropbox", Keys: []string{"access_token"}}
	}

	return nil
}

// RequireShareFile fails fast when any ShareFile credential or endpoint
// setting is empty. Keys are reported in file order.
func (c *Config) RequireShareFile() error {
	s := c.ShareFile

	fields := []struct {
		key   string
		value string
	}{
		{"control_plane", s.ControlPlane},
		{"username", s.Username},
		{"password", s.Password},
		{"subdomain", s.Subdomain},
		{"client_id", s.ClientID},
		{"client_secret", s.ClientSecret},
		{"base_api_url", s.BaseAPIURL},
	}

	var missing []string

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}

	if len(missing) > 0 {
		return &MissingKeysError{Section: "sharefile", Keys: missing}
	}

	return nil
}
