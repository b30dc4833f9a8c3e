// Package testutil provides shared test environment helpers for E2E tests.
// It depends only on stdlib so that E2E tests (which cannot import
// internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvAllowedTestAccounts lists the ShareFile usernames that live tests may
// sign in as, comma separated.
const EnvAllowedTestAccounts = "FILESHARE_ALLOWED_TEST_ACCOUNTS"

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// MissingEnv returns the names among keys that are unset or empty.
func MissingEnv(keys ...string) []string {
	var missing []string

	for _, k := range keys {
		if os.Getenv(k) == "" {
			missing = append(missing, k)
		}
	}

	return missing
}

// ValidateAllowlist crashes the process unless the account named by
// accountEnvVar is listed in FILESHARE_ALLOWED_TEST_ACCOUNTS. Live tests
// create folders and send email, so they must never run against an
// account nobody opted in.
func ValidateAllowlist(accountEnvVar string) {
	allowlist := os.Getenv(EnvAllowedTestAccounts)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedTestAccounts)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=qa@example.com\n", EnvAllowedTestAccounts)
		os.Exit(1)
	}

	account := os.Getenv(accountEnvVar)
	if account == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", accountEnvVar)
		os.Exit(1)
	}

	if !InAllowlist(allowlist, account) {
		fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n",
			accountEnvVar, account, EnvAllowedTestAccounts, allowlist)
		os.Exit(1)
	}
}

// InAllowlist reports whether account appears in the comma-separated list.
// Comparison ignores case and surrounding whitespace.
func InAllowlist(allowlist, account string) bool {
	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(account)) {
			return true
		}
	}

	return false
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
