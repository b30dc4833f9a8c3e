package sharefile

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/fileshare-go/internal/bandwidth"
	"github.com/tonimelisma/fileshare-go/internal/config"
)

// Authenticator holds ShareFile credentials and produces an authenticated
// Session. It performs no network I/O until Login is called.
type Authenticator struct {
	creds      config.ShareFileConfig
	httpClient *http.Client
	tokenURL   string
	userAgent  string
	limiter    *bandwidth.Limiter
	logger     *slog.Logger
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithHTTPClient replaces the TLS-restricted client built from the network
// settings. Used by tests to reach an httptest server.
func WithHTTPClient(hc *http.Client) AuthOption {
	return func(a *Authenticator) { a.httpClient = hc }
}

// WithTokenURL overrides the OAuth token endpoint derived from subdomain and
// control plane.
func WithTokenURL(u string) AuthOption {
	return func(a *Authenticator) { a.tokenURL = u }
}

// WithLimiter throttles upload and download bodies of sessions created by
// this Authenticator.
func WithLimiter(l *bandwidth.Limiter) AuthOption {
	return func(a *Authenticator) { a.limiter = l }
}

// NewAuthenticator creates an Authenticator. Credentials are expected to be
// complete; see config.Config.RequireShareFile.
func NewAuthenticator(
	creds config.ShareFileConfig,
	network config.NetworkConfig,
	logger *slog.Logger,
	opts ...AuthOption,
) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Authenticator{
		creds:      creds,
		httpClient: NewHTTPClient(network),
		tokenURL:   tokenURL(creds.Subdomain, creds.ControlPlane),
		userAgent:  network.UserAgent,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// NewHTTPClient builds the HTTP client used for every ShareFile call. The
// minimum TLS version comes from the network settings; versions below 1.2
// are never negotiated.
func NewHTTPClient(network config.NetworkConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: max(network.TLSVersion(), tls.VersionTLS12)}

	return &http.Client{
		Transport: transport,
		Timeout:   network.TimeoutDuration(),
	}
}

// Login performs the password grant, derives the account's API root from
// the token, and opens a ShareFile session. A rejected grant returns an
// error wrapping ErrAuthentication.
//
// Token refreshes made later by the returned Session are not bound to
// ctx's cancellation.
func (a *Authenticator) Login(ctx context.Context) (*Session, error) {
	a.logger.Info("sharefile: requesting password grant",
		slog.String("subdomain", a.creds.Subdomain),
		slog.String("control_plane", a.creds.ControlPlane),
	)

	cfg := &oauth2.Config{
		ClientID:     a.creds.ClientID,
		ClientSecret: a.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := cfg.PasswordCredentialsToken(ctx, a.creds.Username, a.creds.Password)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			status := 0
			if rErr.Response != nil {
				status = rErr.Response.StatusCode
			}

			a.logger.Warn("sharefile: password grant rejected",
				slog.Int("status", status),
				slog.String("error_code", rErr.ErrorCode),
			)

			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}

		return nil, fmt.Errorf("sharefile: password grant: %w", err)
	}

	baseURL := apiBaseURL(tok, a.creds)

	a.logger.Info("sharefile: password grant accepted",
		slog.String("api_base", baseURL),
		slog.Time("expiry", tok.Expiry),
	)

	src := cfg.TokenSource(context.WithoutCancel(ctx), tok)
	client := NewClient(baseURL, a.httpClient, &tokenBridge{src: src, logger: a.logger}, a.logger, a.userAgent)

	var sr sessionResponse
	if err := client.doJSON(ctx, http.MethodGet, "Sessions/Login?$expand=Principal", nil, &sr); err != nil {
		return nil, fmt.Errorf("sharefile: opening session: %w", err)
	}

	p := Principal(sr.Principal)

	a.logger.Info("sharefile: session opened",
		slog.String("session_id", sr.ID),
		slog.String("principal_id", p.ID),
	)

	return &Session{
		client:    client,
		principal: &p,
		limiter:   a.limiter,
		logger:    a.logger,
	}, nil
}

// tokenURL builds the password grant endpoint for an account.
func tokenURL(subdomain, controlPlane string) string {
	return "https://" + subdomain + "." + controlPlane + "/oauth/token"
}

// apiBaseURL derives the API root from the token response extras
// (subdomain, apicp). Without them the configured base_api_url is used,
// and without that the root is built from subdomain and control plane.
func apiBaseURL(tok *oauth2.Token, creds config.ShareFileConfig) string {
	sub, _ := tok.Extra("subdomain").(string)
	apicp, _ := tok.Extra("apicp").(string)

	if sub != "" && apicp != "" {
		return "https://" + sub + "." + apicp + "/sf/v3/"
	}

	if creds.BaseAPIURL != "" {
		return creds.BaseAPIURL
	}

	return "https://" + creds.Subdomain + "." + apiControlPlane(creds.ControlPlane) + "/sf/v3/"
}

// apiControlPlane maps a web control plane (sharefile.com) to its API
// domain (sf-api.com).
func apiControlPlane(controlPlane string) string {
	if rest, ok := strings.CutPrefix(controlPlane, "sharefile."); ok {
		return "sf-api." + rest
	}

	return controlPlane
}

// tokenBridge adapts oauth2.TokenSource to the TokenSource interface.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		b.logger.Warn("sharefile: token refresh failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return tok.AccessToken, nil
}
