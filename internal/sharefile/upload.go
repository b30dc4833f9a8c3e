package sharefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrNoUploadResult is returned when the upload endpoint accepted the
// content but reported no created item.
var ErrNoUploadResult = errors.New("sharefile: upload returned no item")

// uploadRequest is the body of Items(id)/Upload2.
type uploadRequest struct {
	Method     string `json:"Method"`
	Raw        bool   `json:"Raw"`
	FileName   string `json:"FileName"`
	FileLength int64  `json:"FileLength"`
	Overwrite  bool   `json:"Overwrite"`
}

// uploadSpecification is the Upload2 response. ChunkURI is pre-authenticated.
type uploadSpecification struct {
	Method   string `json:"Method"`
	ChunkURI string `json:"ChunkUri"`
}

// uploadResult is the chunk URI response with fmt=json.
type uploadResult struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    int    `json:"errorCode"`
	Value        []struct {
		ID       string `json:"id"`
		FileName string `json:"filename"`
		Size     int64  `json:"size"`
	} `json:"value"`
}

// UploadFile uploads the local file at localPath into dest, replacing a file
// of the same name, and returns the id of the created item.
func (s *Session) UploadFile(ctx context.Context, localPath string, dest *Item) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	if dest == nil {
		return "", fmt.Errorf("%w: nil destination folder", ErrInvalidArgument)
	}

	if err := checkID(dest.ID); err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("sharefile: opening upload source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("sharefile: stat upload source: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, localPath)
	}

	name := filepath.Base(localPath)

	var spec uploadSpecification

	req := uploadRequest{
		Method:     "Standard",
		Raw:        true,
		FileName:   name,
		FileLength: info.Size(),
		Overwrite:  true,
	}
	if err := s.client.doJSON(ctx, http.MethodPost, itemPath(dest.ID)+"/Upload2", req, &spec); err != nil {
		return "", fmt.Errorf("sharefile: requesting upload of %s: %w", name, err)
	}

	if spec.ChunkURI == "" {
		return "", fmt.Errorf("sharefile: upload of %s: no chunk URI in upload specification", name)
	}

	chunkURL, err := withJSONFormat(spec.ChunkURI)
	if err != nil {
		return "", fmt.Errorf("sharefile: upload of %s: %w", name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, chunkURL, s.limiter.Reader(ctx, f))
	if err != nil {
		return "", fmt.Errorf("sharefile: creating upload request: %w", err)
	}

	httpReq.ContentLength = info.Size()
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.doPreAuth(ctx, "upload", httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("sharefile: decoding upload result: %w", err)
	}

	if result.Error {
		return "", fmt.Errorf("sharefile: upload of %s rejected (code %d): %s", name, result.ErrorCode, result.ErrorMessage)
	}

	if len(result.Value) == 0 || result.Value[0].ID == "" {
		return "", ErrNoUploadResult
	}

	id := result.Value[0].ID

	s.logger.Info("uploaded file",
		slog.String("name", name),
		slog.String("folder_id", dest.ID),
		slog.String("item_id", id),
		slog.Int64("size", info.Size()),
	)

	return id, nil
}

// withJSONFormat asks the upload endpoint for a JSON result instead of the
// default plain-text body.
func withJSONFormat(chunkURI string) (string, error) {
	u, err := url.Parse(chunkURI)
	if err != nil {
		return "", fmt.Errorf("invalid chunk URI: %w", unwrapURLError(err))
	}

	q := u.Query()
	q.Set("fmt", "json")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
