package http_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	accountshttp "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "bartab-accounts-test"

type server struct {
	*httptest.Server
	clock  *clockx.Manual
	client *authsdk.SDKClient
}

type serverOption func(*accountshttp.Router)

func withPingers(db, sessions accountshttp.Pinger) serverOption {
	return func(r *accountshttp.Router) {
		r.Database = db
		r.Sessions = sessions
	}
}

func newServer(t *testing.T, opts ...serverOption) *server {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "accounts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := clockx.NewManual(time.Now().UTC().Truncate(time.Second))

	accessSecret := []byte("http-test-access-secret-0123456789")
	refreshSecret := []byte("http-test-refresh-secret-0123456789")
	accessSigner, err := jwtx.NewSignerHS256(accessSecret)
	require.NoError(t, err)
	refreshSigner, err := jwtx.NewSignerHS256(refreshSecret)
	require.NoError(t, err)
	accessVerifier, err := jwtx.NewVerifierHS256(accessSecret, jwtx.VerifyOptions{
		Issuer: testIssuer, Type: jwtx.TypeAccess, Now: clock.Now,
	})
	require.NoError(t, err)
	refreshVerifier, err := jwtx.NewVerifierHS256(refreshSecret, jwtx.VerifyOptions{
		Issuer: testIssuer, Type: jwtx.TypeRefresh, Now: clock.Now,
	})
	require.NoError(t, err)

	creds := &service.CredentialVerifier{Hasher: &cryptox.Argon2Hasher{
		Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := accountshttp.NewRouter(accessVerifier, httpx.CookieConfig{}, "test", logger)
	router.Clock = clock
	router.Database = st
	router.SessionService = &service.SessionService{
		Store:    st,
		Sessions: st.Sessions(),
		Issuer: &service.TokenIssuer{
			AccessSigner:  accessSigner,
			RefreshSigner: refreshSigner,
			Issuer:        testIssuer,
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    240 * time.Hour,
			Clock:         clock,
		},
		Credentials:     creds,
		RefreshVerifier: refreshVerifier,
	}
	router.AccountService = &service.AccountService{
		Store:       st,
		Sessions:    st.Sessions(),
		Credentials: creds,
		Clock:       clock,
	}
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &server{
		Server: ts,
		clock:  clock,
		client: authsdk.NewSDKClient(ts.URL),
	}
}

func (s *server) register(t *testing.T, name string) *authsdk.Account {
	t.Helper()
	a, err := s.client.Register(context.Background(), authsdk.RegisterRequest{
		Username: name,
		Email:    name + "@x.com",
		Password: "Secret1",
		FullName: "Test " + name,
	})
	require.NoError(t, err)
	return a
}

// requireAPIError asserts err is an *authsdk.APIError with the given status
// and code.
func requireAPIError(t *testing.T, err error, status int, code string) *authsdk.APIError {
	t.Helper()
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
