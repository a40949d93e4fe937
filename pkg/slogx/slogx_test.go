package slogx_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Service: "accounts", Env: "test", Format: "json", Output: &buf})

	log.Info("login",
		"username", "alice",
		"password", "hunter2",
		"refresh_token", "eyJhbGciOi",
		"Authorization", "Bearer abc",
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "alice", line["username"])
	require.Equal(t, slogx.Redacted, line["password"])
	require.Equal(t, slogx.Redacted, line["refresh_token"])
	require.Equal(t, slogx.Redacted, line["Authorization"])
	require.NotContains(t, buf.String(), "hunter2")
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"password", "new_password", "accessToken", "secret", "cookie", "pepper_file"} {
		require.True(t, slogx.IsSensitiveKey(k), k)
	}
	for _, k := range []string{"username", "account_id", "status", "path"} {
		require.False(t, slogx.IsSensitiveKey(k), k)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Format: "json", Output: &buf})

	h := slogx.HTTPMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, slogx.FromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.Len(t, rec.Header().Get(slogx.RequestIDHeader), 26)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "http_request", line["msg"])
		require.EqualValues(t, http.StatusTeapot, line["status"])
	})

	t.Run("honours incoming request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(slogx.RequestIDHeader, "abc-123")
		h.ServeHTTP(rec, req)
		require.Equal(t, "abc-123", rec.Header().Get(slogx.RequestIDHeader))
	})
}
