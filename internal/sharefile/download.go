package sharefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// ErrNoDownloadURL is returned when the download specification carries no URL.
var ErrNoDownloadURL = errors.New("sharefile: item has no download URL")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// downloadSpecification is the Items(id)/Download?redirect=false response.
// DownloadURL is pre-authenticated.
type downloadSpecification struct {
	DownloadToken string `json:"DownloadToken"`
	DownloadURL   string `json:"DownloadUrl"`
}

// DownloadFile downloads item into destDir, creating the directory if it is
// missing, and returns the local path. An existing file of the same name is
// replaced. The content is written to a .partial file first and renamed
// into place once complete, so a failed download never leaves a truncated
// file under the final name.
func (s *Session) DownloadFile(ctx context.Context, item *Item, destDir string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	if item == nil {
		return "", fmt.Errorf("%w: nil item", ErrInvalidArgument)
	}

	if err := checkID(item.ID); err != nil {
		return "", err
	}

	name := item.Name
	if name == "" {
		name = item.FileName
	}

	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: item name %q is not a plain file name", ErrInvalidArgument, name)
	}

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return "", fmt.Errorf("sharefile: creating download directory: %w", err)
	}

	var spec downloadSpecification
	if err := s.client.doJSON(ctx, http.MethodGet, itemPath(item.ID)+"/Download?redirect=false", nil, &spec); err != nil {
		return "", fmt.Errorf("sharefile: requesting download of %s: %w", item.ID, err)
	}

	if spec.DownloadURL == "" {
		s.logger.Warn("download specification has no URL",
			slog.String("item_id", item.ID),
		)

		return "", ErrNoDownloadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.DownloadURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("sharefile: creating download request: %w", unwrapURLError(err))
	}

	resp, err := s.client.doPreAuth(ctx, "download", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	target := filepath.Join(destDir, name)

	n, err := s.writeFile(ctx, target, resp.Body)
	if err != nil {
		return "", err
	}

	s.logger.Info("downloaded file",
		slog.String("item_id", item.ID),
		slog.String("path", target),
		slog.Int64("bytes", n),
	)

	return target, nil
}

// writeFile streams r into target via target.partial.
func (s *Session) writeFile(ctx context.Context, target string, r io.Reader) (int64, error) {
	partial := target + ".partial"

	f, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("sharefile: creating %s: %w", partial, err)
	}

	n, copyErr := io.Copy(f, s.limiter.Reader(ctx, r))
	closeErr := f.Close()

	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(partial); rmErr != nil {
			s.logger.Warn("failed to remove partial download",
				slog.String("path", partial),
				slog.String("error", rmErr.Error()),
			)
		}

		return 0, fmt.Errorf("sharefile: writing %s: %w", target, err)
	}

	if err := os.Rename(partial, target); err != nil {
		return 0, fmt.Errorf("sharefile: moving download into place: %w", err)
	}

	return n, nil
}
