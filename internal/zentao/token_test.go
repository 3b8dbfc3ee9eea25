package zentao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, payload any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var logins atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, testTokenPath, r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "dev1", creds["account"])
		require.Equal(t, "secret", creds["password"])

		logins.Add(1)
		writeJSON(t, w, http.StatusOK, payload)
	}))
	t.Cleanup(server.Close)
	return server, &logins
}

func TestTokenManager_CachesWithinTTL(t *testing.T) {
	server, logins := newTokenServer(t, map[string]any{"token": testToken})
	client := newTestClient(t, server)

	first, err := client.Token(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, testToken, first.Token)
	require.Equal(t, TokenSourceLogin, first.Source)

	second, err := client.Token(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, testToken, second.Token)
	require.Equal(t, TokenSourceCache, second.Source)
	require.Equal(t, int32(1), logins.Load())
}

func TestTokenManager_ReauthenticatesAfterTTL(t *testing.T) {
	server, logins := newTokenServer(t, map[string]any{"token": testToken})
	client := newTestClient(t, server, func(cfg *Config) {
		cfg.TokenTTL = time.Millisecond
	})

	_, err := client.Token(context.Background(), false)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	grant, err := client.Token(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, TokenSourceLogin, grant.Source)
	require.Equal(t, int32(2), logins.Load())
}

func TestTokenManager_ForceAlwaysLogsIn(t *testing.T) {
	server, logins := newTokenServer(t, map[string]any{"token": testToken})
	client := newTestClient(t, server)

	_, err := client.Token(context.Background(), false)
	require.NoError(t, err)

	grant, err := client.Token(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, TokenSourceLogin, grant.Source)
	require.Equal(t, int32(2), logins.Load())
}

func TestTokenManager_MissingCredentials(t *testing.T) {
	server, _ := newTokenServer(t, map[string]any{"token": testToken})
	client := newTestClient(t, server, func(cfg *Config) {
		cfg.Password = ""
	})

	_, err := client.Token(context.Background(), false)
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestTokenManager_ProbesNestedTokenShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload any
	}{
		{"direct", map[string]any{"token": testToken}},
		{"data.token", map[string]any{"data": map[string]any{"token": testToken}}},
		{"data.session.token", map[string]any{"data": map[string]any{"session": map[string]any{"token": testToken}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := newTokenServer(t, tc.payload)
			client := newTestClient(t, server)

			grant, err := client.Token(context.Background(), false)
			require.NoError(t, err)
			require.Equal(t, testToken, grant.Token)
		})
	}
}

func TestTokenManager_FailsLoudWhenTokenFieldMissing(t *testing.T) {
	server, _ := newTokenServer(t, map[string]any{"status": "ok"})
	client := newTestClient(t, server)

	_, err := client.Token(context.Background(), false)
	require.ErrorIs(t, err, ErrTokenFieldMissing)
}
