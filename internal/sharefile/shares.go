package sharefile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type shareItemRef struct {
	ID string `json:"Id"`
}

type shareRequest struct {
	ShareType string         `json:"ShareType"`
	Items     []shareItemRef `json:"Items"`
}

// CreateShareLink creates a link-based share for item and returns it. The
// share's URI is what recipients open.
func (s *Session) CreateShareLink(ctx context.Context, item *Item) (*Share, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if item == nil {
		return nil, fmt.Errorf("%w: nil item", ErrInvalidArgument)
	}

	if err := checkID(item.ID); err != nil {
		return nil, err
	}

	req := shareRequest{
		ShareType: "Send",
		Items:     []shareItemRef{{ID: item.ID}},
	}

	var r shareResponse
	if err := s.client.doJSON(ctx, http.MethodPost, "Shares", req, &r); err != nil {
		return nil, fmt.Errorf("sharefile: creating share for %s: %w", item.ID, err)
	}

	share := toShare(&r)

	s.logger.Info("created share link",
		slog.String("item_id", item.ID),
		slog.String("share_id", share.ID),
	)

	return share, nil
}

// SendShareByEmail emails a share of item to email. Downloads are unlimited
// and the share expires after expirationDays.
func (s *Session) SendShareByEmail(ctx context.Context, item *Item, email, subject string, expirationDays int) error {
	if err := s.ready(); err != nil {
		return err
	}

	if item == nil {
		return fmt.Errorf("%w: nil item", ErrInvalidArgument)
	}

	return s.SendShare(ctx, ShareSendParams{
		Items:          []string{item.ID},
		Emails:         []string{email},
		Subject:        subject,
		MaxDownloads:   UnlimitedDownloads,
		ExpirationDays: expirationDays,
	})
}

// SendShare creates a share from params and emails it to the recipients.
func (s *Session) SendShare(ctx context.Context, params ShareSendParams) error {
	if err := s.ready(); err != nil {
		return err
	}

	if len(params.Items) == 0 {
		return fmt.Errorf("%w: no items to share", ErrInvalidArgument)
	}

	for _, id := range params.Items {
		if err := checkID(id); err != nil {
			return err
		}
	}

	if len(params.Emails) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidArgument)
	}

	for _, e := range params.Emails {
		if !strings.Contains(e, "@") {
			return fmt.Errorf("%w: recipient %q is not an email address", ErrInvalidArgument, e)
		}
	}

	if params.ExpirationDays < 0 {
		return fmt.Errorf("%w: negative expiration days", ErrInvalidArgument)
	}

	if err := s.client.doJSON(ctx, http.MethodPost, "Shares/Send", params, nil); err != nil {
		return fmt.Errorf("sharefile: sending share: %w", err)
	}

	s.logger.Info("sent share by email",
		slog.Int("items", len(params.Items)),
		slog.Int("recipients", len(params.Emails)),
		slog.Int("expiration_days", params.ExpirationDays),
	)

	return nil
}
