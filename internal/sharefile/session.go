package sharefile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonimelisma/fileshare-go/internal/bandwidth"
)

// Session is an authenticated ShareFile session returned by
// Authenticator.Login. A nil or zero-value Session fails every operation
// with ErrUnauthenticated. A Session is not safe for concurrent use.
type Session struct {
	client    *Client
	principal *Principal
	limiter   *bandwidth.Limiter
	logger    *slog.Logger
}

// NewSession wraps an already-authenticated API client. Login is the usual
// way to obtain a Session; this is for callers that manage tokens themselves.
func NewSession(client *Client, principal *Principal, limiter *bandwidth.Limiter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{client: client, principal: principal, limiter: limiter, logger: logger}
}

// Principal returns the account the session is logged in as, or nil.
func (s *Session) Principal() *Principal {
	if s == nil {
		return nil
	}

	return s.principal
}

func (s *Session) ready() error {
	if s == nil || s.client == nil {
		return ErrUnauthenticated
	}

	return nil
}

// LoadRootFolderAndChildren fetches the user's default folder with its
// immediate children expanded.
func (s *Session) LoadRootFolderAndChildren(ctx context.Context) (*Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var r itemResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "Items?$expand=Children", nil, &r); err != nil {
		return nil, fmt.Errorf("sharefile: loading root folder: %w", err)
	}

	root := toItem(&r)
	root.IsFolder = true

	s.logger.Debug("loaded root folder",
		slog.String("item_id", root.ID),
		slog.Int("children", len(root.Children)),
	)

	return &root, nil
}

// GetItem fetches one item by id.
func (s *Session) GetItem(ctx context.Context, id string) (*Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := checkID(id); err != nil {
		return nil, err
	}

	var r itemResponse
	if err := s.client.doJSON(ctx, http.MethodGet, itemPath(id), nil, &r); err != nil {
		return nil, fmt.Errorf("sharefile: getting item %s: %w", id, err)
	}

	item := toItem(&r)

	return &item, nil
}

// CreateFolder creates name under parent. An existing folder with the same
// name is replaced, not merged.
func (s *Session) CreateFolder(ctx context.Context, parent *Item, name, description string) (*Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if parent == nil {
		return nil, fmt.Errorf("%w: nil parent folder", ErrInvalidArgument)
	}

	if err := checkID(parent.ID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty folder name", ErrInvalidArgument)
	}

	body := struct {
		Name        string `json:"Name"`
		Description string `json:"Description"`
	}{name, description}

	var r itemResponse

	path := itemPath(parent.ID) + "/Folder?overwrite=true&passthrough=false"
	if err := s.client.doJSON(ctx, http.MethodPost, path, body, &r); err != nil {
		return nil, fmt.Errorf("sharefile: creating folder %q: %w", name, err)
	}

	folder := toItem(&r)
	folder.IsFolder = true

	s.logger.Info("created folder",
		slog.String("parent_id", parent.ID),
		slog.String("item_id", folder.ID),
		slog.String("name", folder.Name),
	)

	return &folder, nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "()/?#") {
		return fmt.Errorf("%w: item id %q", ErrInvalidArgument, id)
	}

	return nil
}
