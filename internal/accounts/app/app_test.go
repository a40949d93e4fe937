package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.DatabaseFile = filepath.Join(dir, "accounts.db")
	cfg.PepperFile = filepath.Join(dir, "secrets", "pepper")
	cfg.LogLevel = "error"
	cfg.ShutdownGracePeriod = time.Second
	return cfg
}

func startApp(t *testing.T, cfg Config) *authsdk.SDKClient {
	t.Helper()
	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Shutdown()) })

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return authsdk.NewSDKClient(ts.URL)
}

func exerciseSessions(t *testing.T, client *authsdk.SDKClient) {
	t.Helper()
	ctx := context.Background()

	_, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Secret1", FullName: "Alice",
	})
	require.NoError(t, err)

	session, err := client.AuthenticateWithPassword(ctx, "alice", "Secret1")
	require.NoError(t, err)
	first := session.RefreshToken()
	require.NoError(t, session.Refresh(ctx))

	_, err = client.Refresh(ctx, first)
	require.ErrorIs(t, err, authsdk.ErrUnauthorized)

	require.NoError(t, session.Logout(ctx))
}

func TestApplication_SQLite(t *testing.T) {
	client := startApp(t, testConfig(t))
	exerciseSessions(t, client)

	ready, err := client.GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
}

func TestApplication_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.SessionBackend = SessionsRedis
	cfg.RedisAddr = mr.Addr()

	client := startApp(t, cfg)
	exerciseSessions(t, client)

	ready, err := client.GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Sessions)
}

func TestApplication_PepperSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	client := startApp(t, cfg)
	_, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Secret1", FullName: "Alice",
	})
	require.NoError(t, err)

	// Same database and pepper file, new process.
	client = startApp(t, cfg)
	_, err = client.AuthenticateWithPassword(ctx, "alice", "Secret1")
	require.NoError(t, err)
}

func TestNew_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RefreshTokenSecret = cfg.AccessTokenSecret
		_, err := New(cfg)
		require.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := testConfig(t)
		cfg.SessionBackend = SessionsRedis
		cfg.RedisAddr = addr
		_, err := New(cfg)
		require.ErrorContains(t, err, "redis")
	})
}
