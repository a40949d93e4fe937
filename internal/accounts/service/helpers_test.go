package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/redis"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "bartab-accounts-test"
	accessTTL  = 15 * time.Minute
	refreshTTL = 240 * time.Hour
)

var (
	accessSecret  = []byte("test-access-secret-0123456789abcdef")
	refreshSecret = []byte("test-refresh-secret-0123456789abcdef")
)

// env is a fully wired service layer on a temp sqlite database.
type env struct {
	store    store.Store
	sessions store.Sessions
	clock    *clockx.Manual
	hasher   *cryptox.Argon2Hasher

	accessVerifier  *jwtx.HS256Verifier
	refreshVerifier *jwtx.HS256Verifier

	sessionSvc *service.SessionService
	accountSvc *service.AccountService
}

type envOption func(*testing.T, *env)

// withRedisSessions keeps bindings in miniredis instead of the accounts row.
func withRedisSessions() envOption {
	return func(t *testing.T, e *env) {
		mr := miniredis.RunT(t)
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		e.sessions = redis.NewSessions(rdb, e.clock)
	}
}

// withSessions wraps the binding store, e.g. to inject failures.
func withSessions(wrap func(store.Sessions) store.Sessions) envOption {
	return func(_ *testing.T, e *env) {
		e.sessions = wrap(e.sessions)
	}
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "accounts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	e := &env{
		store:    s,
		sessions: s.Sessions(),
		clock:    clockx.NewManual(time.Now().UTC().Truncate(time.Second)),
		// Cheap parameters; the real ones are exercised in cryptox.
		hasher: &cryptox.Argon2Hasher{
			Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
			Pepper: "test-pepper",
		},
	}
	for _, opt := range opts {
		opt(t, e)
	}

	accessSigner, err := jwtx.NewSignerHS256(accessSecret)
	require.NoError(t, err)
	refreshSigner, err := jwtx.NewSignerHS256(refreshSecret)
	require.NoError(t, err)

	e.accessVerifier, err = jwtx.NewVerifierHS256(accessSecret, jwtx.VerifyOptions{
		Issuer: testIssuer, Type: jwtx.TypeAccess, Now: e.clock.Now,
	})
	require.NoError(t, err)
	e.refreshVerifier, err = jwtx.NewVerifierHS256(refreshSecret, jwtx.VerifyOptions{
		Issuer: testIssuer, Type: jwtx.TypeRefresh, Now: e.clock.Now,
	})
	require.NoError(t, err)

	creds := &service.CredentialVerifier{Hasher: e.hasher}
	issuer := &service.TokenIssuer{
		AccessSigner:  accessSigner,
		RefreshSigner: refreshSigner,
		Issuer:        testIssuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Clock:         e.clock,
	}

	e.sessionSvc = &service.SessionService{
		Store:           s,
		Sessions:        e.sessions,
		Issuer:          issuer,
		Credentials:     creds,
		RefreshVerifier: e.refreshVerifier,
	}
	e.accountSvc = &service.AccountService{
		Store:       s,
		Sessions:    e.sessions,
		Credentials: creds,
		Clock:       e.clock,
	}
	return e
}

// register creates name with password "Secret1" and email name@x.com.
func (e *env) register(t *testing.T, name string) string {
	t.Helper()
	a, err := e.accountSvc.Register(context.Background(), service.RegisterInput{
		Username: name,
		Email:    name + "@x.com",
		Password: "Secret1",
		FullName: "Test " + name,
	})
	require.NoError(t, err)
	return a.ID
}

func (e *env) bound(t *testing.T, accountID string) string {
	t.Helper()
	fp, err := e.sessions.GetRefreshToken(context.Background(), accountID)
	require.NoError(t, err)
	return fp
}

// requireKind asserts err is a *service.Error of the given kind and message.
func requireKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	if msg != "" {
		require.Equal(t, msg, se.Message)
	}
}
