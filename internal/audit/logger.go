// Package audit provides structured audit logging for MCP tool calls.
package audit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization)\s*[:=]\s*([^\s,;]+)`)
)

// ToolCallCompletion captures one finalized tool-call outcome.
type ToolCallCompletion struct {
	RequestID    string
	Transport    string
	ToolName     string
	Mode         string
	Arguments    map[string]any
	Result       string
	ErrorDetail  string
	Duration     time.Duration
	ResponseCode int
}

// Logger emits structured audit entries.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Complete writes a single completion entry for one tool call.
func (l *Logger) Complete(event ToolCallCompletion) {
	if l == nil {
		return
	}

	result := strings.TrimSpace(event.Result)
	if result == "" {
		result = "error"
	}
	tool := strings.TrimSpace(event.ToolName)
	if tool == "" {
		tool = "unknown"
	}

	duration := event.Duration
	if duration < 0 {
		duration = 0
	}

	entry := l.logger.Info().
		Str("event", "mcp.tool_call.completed").
		Str("request_id", strings.TrimSpace(event.RequestID)).
		Str("transport", strings.TrimSpace(event.Transport)).
		Str("tool", tool).
		Str("mode", strings.TrimSpace(event.Mode)).
		Str("result", result).
		Int64("duration_ms", duration.Milliseconds())

	if bugID, ok := bugTarget(event.Arguments); ok {
		entry = entry.Int64("bug_id", bugID)
	}
	if event.ResponseCode > 0 {
		entry = entry.Int("response_code", event.ResponseCode)
	}
	if redacted := RedactSensitiveText(event.ErrorDetail); redacted != "" {
		entry = entry.Str("error_detail", redacted)
	}

	entry.Msg("tool call completed")
}

// bugTarget pulls the targeted bug ID out of tool arguments when present.
func bugTarget(args map[string]any) (int64, bool) {
	if args == nil {
		return 0, false
	}
	value, ok := args["id"]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return int64(typed), true
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	default:
		return 0, false
	}
}

// RedactSensitiveText removes obvious secrets from free-text error details.
func RedactSensitiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllStringFunc(redacted, func(match string) string {
		for _, sep := range []string{":", "="} {
			if parts := strings.SplitN(match, sep, 2); len(parts) == 2 {
				return fmt.Sprintf("%s%s[REDACTED]", strings.TrimSpace(parts[0]), sep)
			}
		}
		return "[REDACTED]"
	})
	return redacted
}
