package zentao

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testTokenPath = "/api.php/v1/tokens"
	testToken     = "tok-123"
)

// newTestUpstream wraps a handler with a default token endpoint so client
// tests only describe the API route under test.
func newTestUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == testTokenPath && r.Method == http.MethodPost {
			writeJSON(t, w, http.StatusOK, map[string]any{"token": testToken})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:  server.URL,
		Account:  "dev1",
		Password: "secret",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	client, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}
