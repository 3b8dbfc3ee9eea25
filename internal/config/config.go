// Package config loads zentao-mcp configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aipper/zentao-mcp/internal/policy"
)

const (
	// TransportStdio runs MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP runs MCP over HTTP with SSE tool streaming.
	TransportHTTP = "http"

	defaultListenAddr     = ":27780"
	defaultAPIPrefix      = "/api.php/v1"
	defaultTokenTTLMS     = 20 * 60 * 1000
	defaultRequestTimeout = 30 * 1000
)

// Config holds service runtime configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	Transport  string

	Mode        string
	EnableWrite bool

	// SessionToken, when set, gates the HTTP transport behind bearer auth.
	SessionToken string

	MetricsEnabled bool
	// RevealToken controls whether auth.token.get returns the full upstream
	// credential or a masked form.
	RevealToken bool

	// Upstream gateway settings.
	BaseURL        string
	APIPrefix      string
	TokenPath      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	Account        string
	Password       string
	ProductID      int64
	MaxRetries     int
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOrDefault("ZENTAO_MCP_LISTEN_ADDR", defaultListenAddr),
		LogLevel:       strings.ToLower(strings.TrimSpace(envOrDefault("ZENTAO_MCP_LOG_LEVEL", "info"))),
		Transport:      strings.ToLower(strings.TrimSpace(envOrDefault("ZENTAO_MCP_TRANSPORT", TransportStdio))),
		Mode:           strings.ToLower(strings.TrimSpace(envOrDefault("ZENTAO_MCP_MODE", policy.ModeReadOnly))),
		EnableWrite:    envBool("ZENTAO_MCP_ENABLE_WRITE", false),
		SessionToken:   strings.TrimSpace(os.Getenv("ZENTAO_MCP_SESSION_TOKEN")),
		MetricsEnabled: envBool("ZENTAO_MCP_METRICS_ENABLED", true),
		RevealToken:    envBool("ZENTAO_MCP_REVEAL_TOKEN", false),

		BaseURL:        strings.TrimSpace(os.Getenv("ZENTAO_MCP_BASE_URL")),
		APIPrefix:      envOrDefault("ZENTAO_MCP_API_PREFIX", defaultAPIPrefix),
		TokenPath:      strings.TrimSpace(os.Getenv("ZENTAO_MCP_TOKEN_PATH")),
		TokenTTL:       envDurationMS("ZENTAO_MCP_TOKEN_TTL_MS", defaultTokenTTLMS),
		RequestTimeout: envDurationMS("ZENTAO_MCP_REQUEST_TIMEOUT_MS", defaultRequestTimeout),
		Account:        strings.TrimSpace(os.Getenv("ZENTAO_MCP_ACCOUNT")),
		Password:       os.Getenv("ZENTAO_MCP_PASSWORD"),
		ProductID:      envInt64("ZENTAO_MCP_PRODUCT_ID", 0),
		MaxRetries:     int(envInt64("ZENTAO_MCP_MAX_RETRIES", 0)),
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("invalid ZENTAO_MCP_TRANSPORT %q (allowed: %s|%s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	switch cfg.Mode {
	case policy.ModeReadOnly, policy.ModeReadWrite:
	default:
		return Config{}, fmt.Errorf("invalid ZENTAO_MCP_MODE %q (allowed: %s|%s)", cfg.Mode, policy.ModeReadOnly, policy.ModeReadWrite)
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("ZENTAO_MCP_BASE_URL is required")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("ZENTAO_MCP_TOKEN_TTL_MS must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("ZENTAO_MCP_REQUEST_TIMEOUT_MS must be positive")
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}

func envInt64(key string, defaultVal int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func envDurationMS(key string, defaultMS int64) time.Duration {
	return time.Duration(envInt64(key, defaultMS)) * time.Millisecond
}
