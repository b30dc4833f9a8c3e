package dropbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/fileshare-go/internal/bandwidth"
	"github.com/tonimelisma/fileshare-go/pkg/contenthash"
)

// fakeFiles is an in-memory Dropbox keyed by lower-cased path. Folders are
// implied by the files under them plus any explicitly seeded.
type fakeFiles struct {
	mu       sync.Mutex
	files    map[string][]byte
	display  map[string]string
	folders  map[string]bool
	pageSize int
	err      error
	lastMode string

	corruptHash bool
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		files:   make(map[string][]byte),
		display: make(map[string]string),
		folders: map[string]bool{"": true},
	}
}

func (f *fakeFiles) ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	dir := strings.ToLower(arg.Path)
	if !f.folders[dir] {
		return nil, errors.New("path/not_found/..")
	}

	var entries []files.IsMetadata

	for lower, data := range f.files {
		if path.Dir(lower) != dirOrRoot(dir) {
			continue
		}

		entries = append(entries, &files.FileMetadata{
			Metadata: files.Metadata{
				Name:        path.Base(f.display[lower]),
				PathDisplay: f.display[lower],
				PathLower:   lower,
			},
			Id:   "id:" + lower,
			Size: uint64(len(data)),
		})
	}

	for folder := range f.folders {
		if folder == "" || path.Dir(folder) != dirOrRoot(dir) {
			continue
		}

		entries = append(entries, &files.FolderMetadata{
			Metadata: files.Metadata{Name: path.Base(folder), PathDisplay: folder, PathLower: folder},
			Id:       "id:" + folder,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return metaLower(entries[i]) < metaLower(entries[j])
	})

	res := &files.ListFolderResult{Entries: entries, Cursor: "cursor-1"}
	if f.pageSize > 0 && len(entries) > f.pageSize {
		res.Entries = entries[:f.pageSize]
		res.HasMore = true
	}

	return res, nil
}

func (f *fakeFiles) ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error) {
	if arg.Cursor != "cursor-1" {
		return nil, errors.New("reset/..")
	}

	return &files.ListFolderResult{
		Entries: []files.IsMetadata{
			&files.DeletedMetadata{Metadata: files.Metadata{Name: "gone.txt", PathLower: "/gone.txt"}},
		},
		Cursor: "cursor-2",
	}, nil
}

func (f *fakeFiles) Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, nil, f.err
	}

	data, ok := f.files[strings.ToLower(arg.Path)]
	if !ok {
		return nil, nil, errors.New("path/not_found/")
	}

	hash := contenthash.Sum(data)
	if f.corruptHash {
		hash = contenthash.Sum([]byte("something else"))
	}

	return &files.FileMetadata{Rev: "0123456789", ContentHash: hash}, io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFiles) Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	if arg.Mode != nil {
		f.lastMode = arg.Mode.Tag
	}

	lower := strings.ToLower(arg.Path)
	f.files[lower] = data
	f.display[lower] = arg.Path
	f.folders[strings.TrimSuffix(path.Dir(lower), "/")] = true

	return &files.FileMetadata{
		Metadata: files.Metadata{Name: path.Base(arg.Path), PathDisplay: arg.Path, PathLower: lower},
		Id:       "id:" + lower,
		Size:     uint64(len(data)),
		Rev:      "rev-" + lower,
	}, nil
}

func dirOrRoot(dir string) string {
	if dir == "" {
		return "/"
	}

	return dir
}

func metaLower(m files.IsMetadata) string {
	switch v := m.(type) {
	case *files.FileMetadata:
		return v.PathLower
	case *files.FolderMetadata:
		return v.PathLower
	default:
		return ""
	}
}

func newTestClient(t *testing.T, fake *fakeFiles, opts ...Option) *Client {
	t.Helper()

	opts = append(opts, WithFilesFactory(func(sdk.Config) Files { return fake }))

	c, err := New("test-token", nil, opts...)
	require.NoError(t, err)

	return c
}

func TestNew_MissingToken(t *testing.T) {
	_, err := New("  ", nil)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestUploadThenDownload_RoundTrip(t *testing.T) {
	fake := newFakeFiles()
	c := newTestClient(t, fake)
	ctx := context.Background()

	entry, err := c.Upload(ctx, "/TestFolder", "Test.txt", []byte("Test File Content"))
	require.NoError(t, err)
	assert.Equal(t, "/TestFolder/Test.txt", entry.PathDisplay)
	assert.Equal(t, uint64(17), entry.Size)
	assert.Equal(t, files.WriteModeOverwrite, fake.lastMode)

	got, err := c.Download(ctx, "TestFolder", "Test.txt")
	require.NoError(t, err)
	assert.Equal(t, "Test File Content", string(got))
}

func TestUpload_Overwrites(t *testing.T) {
	fake := newFakeFiles()
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Upload(ctx, "/docs", "a.txt", []byte("first"))
	require.NoError(t, err)
	_, err = c.Upload(ctx, "/docs", "a.txt", []byte("second"))
	require.NoError(t, err)

	got, err := c.Download(ctx, "/docs", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestListFolder_ReturnsUploadedEntries(t *testing.T) {
	fake := newFakeFiles()
	fake.folders["/docs/sub"] = true
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Upload(ctx, "/docs", "a.txt", []byte("aa"))
	require.NoError(t, err)
	_, err = c.Upload(ctx, "/docs", "b.txt", []byte("bbb"))
	require.NoError(t, err)

	entries, err := c.ListFolder(ctx, "/docs/")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, uint64(2), entries[0].Size)
	assert.False(t, entries[0].IsFolder)
	assert.Equal(t, "b.txt", entries[1].Name)
	assert.Equal(t, "sub", entries[2].Name)
	assert.True(t, entries[2].IsFolder)
}

func TestListFolder_Root(t *testing.T) {
	fake := newFakeFiles()
	c := newTestClient(t, fake)

	_, err := c.Upload(context.Background(), "/", "top.txt", []byte("x"))
	require.NoError(t, err)

	for _, folder := range []string{"", "/"} {
		entries, err := c.ListFolder(context.Background(), folder)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "top.txt", entries[0].Name)
	}
}

func TestListFolder_MissingFolderIsNotFound(t *testing.T) {
	c := newTestClient(t, newFakeFiles())

	_, err := c.ListFolder(context.Background(), "/nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var dbErr *Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "list folder", dbErr.Op)
	assert.Equal(t, "/nope", dbErr.Path)
}

func TestListFolder_FirstPageOnly(t *testing.T) {
	fake := newFakeFiles()
	fake.pageSize = 1
	c := newTestClient(t, fake)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := c.Upload(ctx, "/p", name, []byte(name))
		require.NoError(t, err)
	}

	entries, err := c.ListFolder(ctx, "/p")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	page, err := c.ListFolderPage(ctx, "/p")
	require.NoError(t, err)
	assert.True(t, page.HasMore)

	next, err := c.ListFolderContinue(ctx, page.Cursor)
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	assert.True(t, next.Entries[0].IsDeleted)
	assert.False(t, next.HasMore)
}

func TestListFolderContinue_EmptyCursor(t *testing.T) {
	c := newTestClient(t, newFakeFiles())

	_, err := c.ListFolderContinue(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestDownload_MissingFileIsNotFound(t *testing.T) {
	c := newTestClient(t, newFakeFiles())

	_, err := c.Download(context.Background(), "/docs", "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidFileName(t *testing.T) {
	c := newTestClient(t, newFakeFiles())
	ctx := context.Background()

	_, err := c.Upload(ctx, "/docs", "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = c.Download(ctx, "/docs", "a/b.txt")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestErrors_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth api error", auth.AuthAPIError{APIError: sdk.APIError{ErrorSummary: "invalid_access_token/"}}, ErrUnauthorized},
		{"expired summary", errors.New("expired_access_token/.."), ErrUnauthorized},
		{"not found", errors.New("path/not_found/."), ErrNotFound},
		{"canceled", context.Canceled, ErrTransport},
		{"other", errors.New("too_many_write_operations"), ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeFiles()
			fake.err = tt.err
			c := newTestClient(t, fake)

			_, err := c.ListFolder(context.Background(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFolderPath_NormalizesNFC(t *testing.T) {
	decomposed := "cafe\u0301"

	assert.Equal(t, "/caf\u00e9", folderPath(decomposed))
	assert.Equal(t, "/a/b", folderPath(" /a/b/ "))
	assert.Equal(t, "", folderPath("/"))
}

func TestOpen_SendsBearerTokenAndHonorsContext(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var captured sdk.Config

	c, err := New("secret-token", nil,
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithFilesFactory(func(cfg sdk.Config) Files {
			captured = cfg
			return newFakeFiles()
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	c.open(ctx)

	require.NotNil(t, captured.Client)
	assert.Equal(t, "secret-token", captured.Token)
	assert.Equal(t, 5*time.Second, captured.Client.Timeout)

	resp, err := captured.Client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer secret-token", gotAuth)

	cancel()

	_, err = captured.Client.Get(srv.URL) //nolint:bodyclose // request fails before a response exists
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownload_ThroughLimiter(t *testing.T) {
	lim, err := bandwidth.New("10MB/s", nil)
	require.NoError(t, err)

	fake := newFakeFiles()
	c := newTestClient(t, fake, WithLimiter(lim))
	ctx := context.Background()

	payload := bytes.Repeat([]byte("z"), 4096)
	_, err = c.Upload(ctx, "/big", "z.bin", payload)
	require.NoError(t, err)

	got, err := c.Download(ctx, "/big", "z.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownload_ContentHashMismatch(t *testing.T) {
	fake := newFakeFiles()
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Upload(ctx, "/docs", "a.txt", []byte("payload"))
	require.NoError(t, err)

	fake.corruptHash = true

	_, err = c.Download(ctx, "/docs", "a.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHashMismatch)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "download", de.Op)
	assert.Equal(t, "/docs/a.txt", de.Path)
}
