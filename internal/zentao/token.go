package zentao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aipper/zentao-mcp/internal/metrics"
)

// TokenSource identifies how a grant was obtained.
type TokenSource string

const (
	// TokenSourceCache means an unexpired cached token was reused.
	TokenSourceCache TokenSource = "cache"
	// TokenSourceLogin means a login request was performed.
	TokenSourceLogin TokenSource = "login"
)

// Grant is a usable credential together with its provenance.
type Grant struct {
	Token  string
	Source TokenSource
}

// tokenProbes lists the nested key paths tried, in order, when extracting a
// token from the login response. The upstream schema is not guaranteed, so
// each plausible shape is an explicit strategy.
var tokenProbes = [][]string{
	{"token"},
	{"data", "token"},
	{"data", "session", "token"},
}

// TokenManager owns the single cached bearer credential.
//
// The mutex guards reads and the final overwrite of the cached state only.
// A refresh in flight is deliberately not deduplicated: two concurrent
// expired-token callers may each perform a login. The upstream login is
// idempotent and the redundancy is accepted, matching the documented
// non-atomic-refresh behavior of this client.
type TokenManager struct {
	account   string
	password  string
	tokenURL  string
	ttl       time.Duration
	transport *Transport
	logger    zerolog.Logger

	mu         sync.Mutex
	token      string
	obtainedAt time.Time
}

func newTokenManager(cfg Config, tokenURL string, transport *Transport, logger zerolog.Logger) *TokenManager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{
		account:   strings.TrimSpace(cfg.Account),
		password:  cfg.Password,
		tokenURL:  tokenURL,
		ttl:       ttl,
		transport: transport,
		logger:    logger.With().Str("component", "token").Logger(),
	}
}

// Token returns a valid grant, logging in when the cached token is absent,
// expired, or a refresh is forced.
func (m *TokenManager) Token(ctx context.Context, force bool) (Grant, error) {
	if !force {
		if token, ok := m.cached(); ok {
			metrics.ObserveTokenResolution(string(TokenSourceCache))
			return Grant{Token: token, Source: TokenSourceCache}, nil
		}
	}

	token, err := m.login(ctx)
	if err != nil {
		return Grant{}, err
	}

	m.mu.Lock()
	m.token = token
	m.obtainedAt = time.Now()
	m.mu.Unlock()

	metrics.ObserveTokenResolution(string(TokenSourceLogin))
	m.logger.Debug().Bool("forced", force).Msg("obtained fresh upstream token")
	return Grant{Token: token, Source: TokenSourceLogin}, nil
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.obtainedAt.IsZero() {
		return "", false
	}
	if time.Since(m.obtainedAt) > m.ttl {
		return "", false
	}
	return m.token, true
}

func (m *TokenManager) login(ctx context.Context) (string, error) {
	if m.account == "" || m.password == "" {
		return "", ErrMissingCredentials
	}

	payload, err := json.Marshal(map[string]string{
		"account":  m.account,
		"password": m.password,
	})
	if err != nil {
		return "", fmt.Errorf("encoding login request: %w", err)
	}

	envelope, err := m.transport.Do(ctx, "POST", m.tokenURL, map[string]string{
		"Content-Type": "application/json",
	}, payload)
	if err != nil {
		return "", fmt.Errorf("logging in to zentao: %w", err)
	}

	token, ok := probeToken(envelope.Data)
	if !ok {
		return "", fmt.Errorf("%w (status %d)", ErrTokenFieldMissing, envelope.Status)
	}
	return token, nil
}

func probeToken(data any) (string, bool) {
	for _, path := range tokenProbes {
		if token, ok := stringAtPath(data, path); ok {
			return token, true
		}
	}
	return "", false
}

func stringAtPath(data any, path []string) (string, bool) {
	current := data
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = object[key]
		if !ok {
			return "", false
		}
	}
	token, ok := current.(string)
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}
