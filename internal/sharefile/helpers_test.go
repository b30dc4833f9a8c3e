package sharefile

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/fileshare-go/internal/config"
	"github.com/tonimelisma/fileshare-go/internal/sharefile/sharefiletest"
)

func testCreds(srv *sharefiletest.Server) config.ShareFileConfig {
	return config.ShareFileConfig{
		ControlPlane: "sharefile.com",
		Username:     sharefiletest.Username,
		Password:     sharefiletest.Password,
		Subdomain:    "acme",
		ClientID:     sharefiletest.ClientID,
		ClientSecret: sharefiletest.ClientSecret,
		BaseAPIURL:   srv.APIBaseURL(),
	}
}

func testAuthenticator(srv *sharefiletest.Server, creds config.ShareFileConfig, opts ...AuthOption) *Authenticator {
	opts = append([]AuthOption{
		WithHTTPClient(srv.Client()),
		WithTokenURL(srv.TokenURL()),
	}, opts...)

	return NewAuthenticator(creds, config.NetworkConfig{}, slog.New(slog.DiscardHandler), opts...)
}

func login(t *testing.T, srv *sharefiletest.Server) *Session {
	t.Helper()

	s, err := testAuthenticator(srv, testCreds(srv)).Login(t.Context())
	require.NoError(t, err)

	return s
}
