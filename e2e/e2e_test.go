//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/fileshare-go/testutil"
)

// Live-account settings, read from the environment or .env at the module root.
const (
	envDropboxToken      = "FILESHARE_DROPBOX_ACCESS_TOKEN"
	envShareFileUsername = "FILESHARE_SHAREFILE_USERNAME"
	envShareFilePassword = "FILESHARE_SHAREFILE_PASSWORD"
	envShareFileSecret   = "FILESHARE_SHAREFILE_CLIENT_SECRET"
	envShareFileConfig   = "FILESHARE_E2E_CONFIG"
	envRecipient         = "FILESHARE_E2E_RECIPIENT"
)

var binaryPath string

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))

	// Build binary to temp dir.
	tmpDir, err := os.MkdirTemp("", "fileshare-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "fileshare-go")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, string) {
	t.Helper()

	cmd := exec.Command(binaryPath, append([]string{"--config", cfgPath}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("CLI command %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String(), stderr.String()
}

func requireEnv(t *testing.T, keys ...string) {
	t.Helper()

	if missing := testutil.MissingEnv(keys...); len(missing) > 0 {
		t.Skipf("live credentials not configured: %s", strings.Join(missing, ", "))
	}
}

func TestE2E_ConfigShowNeverPrintsSecrets(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[dropbox]\naccess_token = \"sl.e2e-secret\"\n"), 0o600))

	stdout, _ := runCLI(t, cfgPath, "config", "show")
	assert.Contains(t, stdout, "[dropbox]")
	assert.NotContains(t, stdout, "sl.e2e-secret")
}

func TestE2E_DropboxRoundTrip(t *testing.T) {
	requireEnv(t, envDropboxToken)

	// Token comes from the environment; the file only pins the defaults.
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	folder := fmt.Sprintf("fileshare-go-e2e-%d", time.Now().UnixNano())
	content := "Hello from fileshare-go E2E test!"

	_, stderr := runCLI(t, cfgPath, "dropbox", "put", folder, "test.txt", content)
	assert.Contains(t, stderr, "Uploaded")

	stdout, _ := runCLI(t, cfgPath, "dropbox", "get", folder, "test.txt")
	assert.Equal(t, content, stdout)

	stdout, _ = runCLI(t, cfgPath, "--json", "dropbox", "ls", folder)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "test.txt", entries[0]["name"])
}

func TestE2E_ShareFileDemo(t *testing.T) {
	requireEnv(t, envShareFileConfig, envShareFileUsername, envShareFilePassword, envShareFileSecret, envRecipient)
	testutil.ValidateAllowlist(envShareFileUsername)

	cfgPath := os.Getenv(envShareFileConfig)
	workDir := t.TempDir()
	sample := filepath.Join(workDir, "SampleFileUpload.txt")

	stdout, _ := runCLI(t, cfgPath, "--json", "sharefile", "demo",
		"--file", sample, "--recipient", os.Getenv(envRecipient))

	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.NotEmpty(t, res["file_id"])
	assert.NotEmpty(t, res["share_uri"])

	data, err := os.ReadFile(res["download_path"])
	require.NoError(t, err)

	want, err := os.ReadFile(sample)
	require.NoError(t, err)
	assert.Equal(t, want, data)
}
