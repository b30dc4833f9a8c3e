package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/fileshare-go/internal/config"
	"github.com/tonimelisma/fileshare-go/internal/sharefile"
	"github.com/tonimelisma/fileshare-go/internal/sharefile/sharefiletest"
)

// useShareFileServer points every ShareFile command in the test at srv and
// returns a config file holding its credentials.
func useShareFileServer(t *testing.T, srv *sharefiletest.Server, downloadDir string) string {
	t.Helper()

	old := shareFileAuthOptions
	t.Cleanup(func() { shareFileAuthOptions = old })

	shareFileAuthOptions = []sharefile.AuthOption{
		sharefile.WithHTTPClient(srv.Client()),
		sharefile.WithTokenURL(srv.TokenURL()),
	}

	return writeConfig(t, fmt.Sprintf(`
[sharefile]
control_plane = "sharefile.com"
username = %q
password = %q
subdomain = "acme"
client_id = %q
client_secret = %q
base_api_url = %q

[transfers]
download_dir = %q

[logging]
log_level = "error"
`, sharefiletest.Username, sharefiletest.Password, sharefiletest.ClientID,
		sharefiletest.ClientSecret, srv.APIBaseURL(), downloadDir))
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)

	return v
}

func TestShareFile_RootJSON(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	out, err := execute(t, "--json", "--config", cfg, "sharefile", "root")
	require.NoError(t, err)

	root := decodeJSON[itemJSON](t, out)
	assert.Equal(t, sharefiletest.RootID, root.ID)
	assert.Equal(t, sharefiletest.RootName, root.Name)
	assert.True(t, root.IsFolder)
	assert.Empty(t, root.Children)
}

func TestShareFile_MkdirPutStatGet(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	downloads := filepath.Join(t.TempDir(), "downloads")
	cfg := useShareFileServer(t, srv, downloads)

	out, err := execute(t, "--json", "--config", cfg, "sharefile", "mkdir", sharefiletest.RootID, "Reports",
		"--description", "quarterly")
	require.NoError(t, err)

	folder := decodeJSON[itemJSON](t, out)
	assert.Equal(t, "Reports", folder.Name)
	assert.True(t, folder.IsFolder)

	local := filepath.Join(t.TempDir(), "q1.txt")
	require.NoError(t, os.WriteFile(local, []byte("numbers"), 0o600))

	out, err = execute(t, "--json", "--config", cfg, "sharefile", "put", local, folder.ID)
	require.NoError(t, err)

	fileID := decodeJSON[map[string]string](t, out)["id"]
	require.NotEmpty(t, fileID)

	out, err = execute(t, "--config", cfg, "sharefile", "stat", fileID)
	require.NoError(t, err)
	assert.Contains(t, out, "q1.txt")
	assert.Contains(t, out, "Type:     file")
	assert.Contains(t, out, folder.ID)

	// No dest-dir argument: the configured download_dir is used and created.
	out, err = execute(t, "--json", "--config", cfg, "sharefile", "get", fileID)
	require.NoError(t, err)

	got := decodeJSON[map[string]string](t, out)
	assert.Equal(t, filepath.Join(downloads, "q1.txt"), got["path"])

	data, err := os.ReadFile(got["path"])
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))
}

func TestShareFile_RootTableListsChildren(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	_, err := execute(t, "--config", cfg, "sharefile", "mkdir", sharefiletest.RootID, "Alpha")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "sharefile", "root")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], sharefiletest.RootName)
	assert.Contains(t, lines[1], "NAME")
	assert.Contains(t, lines[2], "Alpha/")
}

func TestShareFile_LinkAndSend(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	local := filepath.Join(t.TempDir(), "share.txt")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o600))

	out, err := execute(t, "--json", "--config", cfg, "sharefile", "put", local, sharefiletest.RootID)
	require.NoError(t, err)

	fileID := decodeJSON[map[string]string](t, out)["id"]

	out, err = execute(t, "--config", cfg, "sharefile", "link", fileID)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = execute(t, "--config", cfg, "sharefile", "send", fileID, "friend@example.com",
		"--subject", "Have a look", "--expiration-days", "3")
	require.NoError(t, err)

	sent := srv.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{fileID}, sent[0].Items)
	assert.Equal(t, []string{"friend@example.com"}, sent[0].Emails)
	assert.Equal(t, "Have a look", sent[0].Subject)
	assert.Equal(t, 3, sent[0].ExpirationDays)
	assert.Equal(t, sharefile.UnlimitedDownloads, sent[0].MaxDownloads)
}

func TestShareFile_SendDefaultsToTenDays(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	_, err := execute(t, "--config", cfg, "sharefile", "send", sharefiletest.RootID, "friend@example.com")
	require.NoError(t, err)

	sent := srv.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, defaultExpirationDays, sent[0].ExpirationDays)
}

func TestShareFile_StatMissingItem(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	_, err := execute(t, "--config", cfg, "sharefile", "stat", "fi-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, sharefile.ErrNotFound)
}

func TestShareFile_MissingCredentials(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--config", writeConfig(t, ""), "sharefile", "root")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSetting)
}

func TestShareFile_WrongPassword(t *testing.T) {
	isolateEnv(t)

	srv := sharefiletest.NewServer(t)
	cfg := useShareFileServer(t, srv, t.TempDir())

	t.Setenv(config.EnvShareFilePassword, "wrong")

	_, err := execute(t, "--config", cfg, "sharefile", "root")
	require.Error(t, err)
	assert.ErrorIs(t, err, sharefile.ErrAuthentication)
}
