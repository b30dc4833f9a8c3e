package dropbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/fileshare-go/internal/bandwidth"
	"github.com/tonimelisma/fileshare-go/pkg/contenthash"
)

// Files is the subset of the SDK files client used by Client. Tests swap in
// an in-memory implementation through WithFilesFactory.
type Files interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)
}

// FilesFactory builds a Files client from an SDK config.
type FilesFactory func(cfg sdk.Config) Files

func defaultFilesFactory(cfg sdk.Config) Files {
	return files.New(cfg)
}

// Client talks to one Dropbox account identified by a long-lived access token.
type Client struct {
	token      string
	httpClient *http.Client
	limiter    *bandwidth.Limiter
	logger     *slog.Logger
	newFiles   FilesFactory
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the base HTTP client. Its transport and timeout are
// reused for every SDK call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter throttles upload and download bodies. A nil limiter is unlimited.
func WithLimiter(l *bandwidth.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithFilesFactory replaces the SDK client constructor.
func WithFilesFactory(f FilesFactory) Option {
	return func(c *Client) { c.newFiles = f }
}

// New creates a Client. The token is checked for presence only; Dropbox
// validates it on first use.
func New(accessToken string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrMissingToken
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		token:      accessToken,
		httpClient: http.DefaultClient,
		logger:     logger,
		newFiles:   defaultFilesFactory,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// open builds an SDK client whose requests carry ctx and the bearer token.
// The SDK does not accept a context, so cancellation reaches it through the
// transport instead.
func (c *Client) open(ctx context.Context) Files {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	authed := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
		Base:   base,
	}

	hc := &http.Client{
		Transport: contextTransport{ctx: ctx, base: authed},
		Timeout:   c.httpClient.Timeout,
	}

	return c.newFiles(sdk.Config{
		Token:    c.token,
		LogLevel: sdk.LogOff,
		Client:   hc,
	})
}

// contextTransport attaches a fixed context to every outgoing request.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// ListFolder returns the first page of entries directly inside folder.
// An empty folder or "/" lists the account root. When the vendor reports
// more entries the page is still returned as-is and a warning is logged;
// use ListFolderPage and ListFolderContinue to walk every page.
func (c *Client) ListFolder(ctx context.Context, folder string) ([]Entry, error) {
	page, err := c.ListFolderPage(ctx, folder)
	if err != nil {
		return nil, err
	}

	if page.HasMore {
		c.logger.Warn("dropbox: listing truncated to first page",
			slog.String("folder", folderPath(folder)),
			slog.Int("entries", len(page.Entries)),
		)
	}

	return page.Entries, nil
}

// ListFolderPage returns the first page of folder with its continuation cursor.
func (c *Client) ListFolderPage(ctx context.Context, folder string) (*Listing, error) {
	path := folderPath(folder)

	c.logger.Debug("dropbox: listing folder", slog.String("folder", path))

	res, err := c.open(ctx).ListFolder(files.NewListFolderArg(path))
	if err != nil {
		return nil, wrapError("list folder", path, err)
	}

	page := toListing(res)

	c.logger.Debug("dropbox: listed folder",
		slog.String("folder", path),
		slog.Int("entries", len(page.Entries)),
		slog.Bool("has_more", page.HasMore),
	)

	return page, nil
}

// ListFolderContinue fetches the page after cursor.
func (c *Client) ListFolderContinue(ctx context.Context, cursor string) (*Listing, error) {
	if cursor == "" {
		return nil, fmt.Errorf("dropbox: list folder continue: %w: empty cursor", ErrInvalidPath)
	}

	res, err := c.open(ctx).ListFolderContinue(files.NewListFolderContinueArg(cursor))
	if err != nil {
		return nil, wrapError("list folder continue", "", err)
	}

	return toListing(res), nil
}

// Download returns the full content of folder/name.
func (c *Client) Download(ctx context.Context, folder, name string) ([]byte, error) {
	path, err := filePath(folder, name)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("dropbox: downloading", slog.String("path", path))

	meta, body, err := c.open(ctx).Download(files.NewDownloadArg(path))
	if err != nil {
		return nil, wrapError("download", path, err)
	}
	defer body.Close()

	data, err := io.ReadAll(c.limiter.Reader(ctx, body))
	if err != nil {
		return nil, wrapError("download", path, err)
	}

	if meta.ContentHash != "" {
		if got := contenthash.Sum(data); got != meta.ContentHash {
			c.logger.Warn("dropbox: content hash mismatch",
				slog.String("path", path),
				slog.String("expected", meta.ContentHash),
				slog.String("actual", got),
			)

			return nil, &Error{
				Op: "download", Path: path, Err: ErrHashMismatch,
				Cause: fmt.Errorf("expected %s, got %s", meta.ContentHash, got),
			}
		}
	}

	c.logger.Info("dropbox: downloaded",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.String("rev", meta.Rev),
	)

	return data, nil
}

// Upload writes content to folder/name, replacing any existing file.
func (c *Client) Upload(ctx context.Context, folder, name string, content []byte) (*Entry, error) {
	path, err := filePath(folder, name)
	if err != nil {
		return nil, err
	}

	arg := files.NewUploadArg(path)
	arg.Mode = &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeOverwrite}}

	c.logger.Debug("dropbox: uploading",
		slog.String("path", path),
		slog.Int("bytes", len(content)),
	)

	meta, err := c.open(ctx).Upload(arg, c.limiter.Reader(ctx, bytes.NewReader(content)))
	if err != nil {
		return nil, wrapError("upload", path, err)
	}

	entry := fileEntry(meta)

	c.logger.Info("dropbox: uploaded",
		slog.String("path", entry.PathDisplay),
		slog.Uint64("size", entry.Size),
		slog.String("rev", entry.Rev),
	)

	return &entry, nil
}

// folderPath normalizes a folder argument to the API's form: "" for the
// root, otherwise a single leading slash and no trailing slash. Names are
// NFC-normalized so the same visible path always maps to one remote path.
func folderPath(folder string) string {
	f := strings.Trim(norm.NFC.String(strings.TrimSpace(folder)), "/")
	if f == "" {
		return ""
	}

	return "/" + f
}

func filePath(folder, name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" || strings.Contains(n, "/") {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidPath, name)
	}

	return folderPath(folder) + "/" + n, nil
}
