// Package zentao is the gateway client for a ZenTao-style issue tracker API.
//
// Every domain operation funnels through Client.Call, which resolves a valid
// token, builds the request URL and dispatches one HTTP exchange. The client
// holds no state other than configuration and the cached credential; there is
// no persistence across process restarts.
package zentao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultAPIPrefix = "/api.php/v1"
	defaultTokenTTL  = 20 * time.Minute
	defaultTimeout   = 30 * time.Second

	// tokenHeader is the fixed request header carrying the bearer credential.
	tokenHeader = "Token"
)

// ScopeHintFunc reports whether an upstream error signals that a listing
// endpoint must be qualified with a product scope. The default implementation
// matches a free-text phrase; callers may replace it with a stricter check.
type ScopeHintFunc func(status int, body string) bool

// Config is the immutable client configuration.
type Config struct {
	// BaseURL is the root of the ZenTao installation, e.g. https://zentao.example.com.
	BaseURL string
	// APIPrefix is the versioned API prefix. Defaults to /api.php/v1.
	APIPrefix string
	// TokenPath overrides the token endpoint path. Defaults to <APIPrefix>/tokens.
	TokenPath string
	// TokenTTL bounds how long a cached token is reused. Defaults to 20m.
	TokenTTL time.Duration
	// Timeout bounds every HTTP exchange. Defaults to 30s.
	Timeout time.Duration
	// Account and Password authenticate the login request.
	Account  string
	Password string
	// DefaultProduct optionally scopes bug listings when the upstream
	// demands a product-qualified path.
	DefaultProduct int64
	// MaxRetries enables transient-failure retries for idempotent requests.
	// Zero disables retry.
	MaxRetries int
	// ScopeHint replaces the default product-scope-required detection.
	ScopeHint ScopeHintFunc
	// HTTPClient optionally overrides the underlying http.Client.
	HTTPClient *http.Client
}

// Request describes one API call.
type Request struct {
	Path   string
	Method string
	Query  map[string]any
	Body   any
}

// Client is the ZenTao API gateway client.
type Client struct {
	cfg       Config
	transport *Transport
	tokens    *TokenManager
	scopeHint ScopeHintFunc
	logger    zerolog.Logger
}

// New creates a client. BaseURL is required; all other fields default.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("zentao: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(base, "/")
	if strings.TrimSpace(cfg.APIPrefix) == "" {
		cfg.APIPrefix = defaultAPIPrefix
	}
	if strings.TrimSpace(cfg.TokenPath) == "" {
		cfg.TokenPath = joinSegments(cfg.APIPrefix, "tokens")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	transport := newTransport(cfg.HTTPClient, cfg.Timeout, cfg.MaxRetries, logger)

	tokenURL, err := ResolveURL(cfg.BaseURL, "", cfg.TokenPath, nil)
	if err != nil {
		return nil, fmt.Errorf("resolving token endpoint: %w", err)
	}

	scopeHint := cfg.ScopeHint
	if scopeHint == nil {
		scopeHint = defaultScopeHint
	}

	return &Client{
		cfg:       cfg,
		transport: transport,
		tokens:    newTokenManager(cfg, tokenURL, transport, logger),
		scopeHint: scopeHint,
		logger:    logger.With().Str("component", "zentao").Logger(),
	}, nil
}

// Token exposes the token manager for callers that need the raw grant,
// such as the masked-token diagnostic tool.
func (c *Client) Token(ctx context.Context, force bool) (Grant, error) {
	return c.tokens.Token(ctx, force)
}

// Call is the authenticated primitive all domain operations use. Transport
// and token failures propagate unchanged so callers can branch on status.
func (c *Client) Call(ctx context.Context, req Request) (*Envelope, error) {
	grant, err := c.tokens.Token(ctx, false)
	if err != nil {
		return nil, err
	}

	rawURL, err := ResolveURL(c.cfg.BaseURL, c.cfg.APIPrefix, req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{tokenHeader: grant.Token}
	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		headers["Content-Type"] = "application/json"
	}

	return c.transport.Do(ctx, req.Method, rawURL, headers, body)
}

// defaultScopeHint matches the upstream's free-text complaint that a product
// scope is mandatory. Kept deliberately loose; see Config.ScopeHint.
func defaultScopeHint(status int, body string) bool {
	if status < 400 {
		return false
	}
	lowered := strings.ToLower(body)
	if !strings.Contains(lowered, "product") {
		return false
	}
	return strings.Contains(lowered, "required") || strings.Contains(lowered, "must")
}
