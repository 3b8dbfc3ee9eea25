package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aipper/zentao-mcp/internal/audit"
	"github.com/aipper/zentao-mcp/internal/config"
	"github.com/aipper/zentao-mcp/internal/httputil"
	"github.com/aipper/zentao-mcp/internal/metrics"
	"github.com/aipper/zentao-mcp/internal/policy"
)

var (
	// ErrBearerTokenMissing indicates Authorization header did not contain a bearer token.
	ErrBearerTokenMissing = errors.New("missing or malformed Authorization bearer token")
	// ErrBearerTokenInvalid indicates the provided bearer token did not match the configured session token.
	ErrBearerTokenInvalid = errors.New("invalid bearer token for MCP session")
)

// HTTPServer wraps MCP HTTP routing state.
type HTTPServer struct {
	cfg      config.Config
	version  string
	contract []byte
	registry *ToolRegistry
	policy   ToolAuthorizer
	caller   ToolCaller
	logger   zerolog.Logger
}

// NewHTTPServer creates an HTTP transport server with health and MCP routes.
func NewHTTPServer(
	cfg config.Config,
	version string,
	contract []byte,
	registry *ToolRegistry,
	authorizer ToolAuthorizer,
	caller ToolCaller,
	logger zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		cfg:      cfg,
		version:  version,
		contract: contract,
		registry: registry,
		policy:   authorizer,
		caller:   caller,
		logger:   logger,
	}
}

// Router builds the MCP HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(httputil.RequestID)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	registerHealthRoutes(r, s.version, s.cfg.MetricsEnabled)
	registerMCPHTTPRoutes(r, s.registry, s.policy, s.cfg.SessionToken, s.caller, s.version, s.logger)

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	return r
}

func registerMCPHTTPRoutes(
	r chi.Router,
	registry *ToolRegistry,
	authorizer ToolAuthorizer,
	sessionToken string,
	caller ToolCaller,
	version string,
	logger zerolog.Logger,
) {
	r.Route("/mcp/v1", func(r chi.Router) {
		r.Post("/initialize", handleInitializeHTTP(version))
		r.Get("/tools", handleListToolsHTTP(registry))
		r.Post("/tools/call", handleCallToolHTTP(registry, authorizer, sessionToken, caller, logger))
		r.Post("/tools/call/sse", handleCallToolSSE(registry, authorizer, sessionToken, caller, logger))
	})
}

func handleInitializeHTTP(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		result := initializeResult{
			ProtocolVersion: defaultProtocolVersion,
		}
		result.ServerInfo.Name = defaultServerName
		result.ServerInfo.Version = strings.TrimSpace(version)
		result.Capabilities.Tools.ListChanged = false
		httputil.RespondJSON(w, http.StatusOK, result)
	}
}

func handleListToolsHTTP(registry *ToolRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tools := make([]toolDescriptor, 0, len(registry.List()))
		for _, tool := range registry.List() {
			tools = append(tools, toolDescriptor{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
		httputil.RespondJSON(w, http.StatusOK, listToolsResult{Tools: tools})
	}
}

func handleCallToolHTTP(
	registry *ToolRegistry,
	authorizer ToolAuthorizer,
	sessionToken string,
	caller ToolCaller,
	logger zerolog.Logger,
) http.HandlerFunc {
	auditLogger := audit.NewLogger(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		mode := resolvedMode(authorizer)
		requestID := httputil.RequestIDFromContext(r.Context())

		params, tool, rejectionDetail, ok := parseCallToolRequest(w, r, registry, authorizer, sessionToken)
		auditEvent := audit.ToolCallCompletion{
			RequestID: requestID,
			Transport: "http",
			ToolName:  strings.TrimSpace(params.Name),
			Mode:      mode,
			Arguments: params.Arguments,
			Result:    "error",
		}
		defer func() {
			auditEvent.Duration = time.Since(started)
			auditLogger.Complete(auditEvent)
		}()

		if !ok {
			auditEvent.ErrorDetail = rejectionDetail
			return
		}

		auditEvent.ToolName = tool.Name
		logger.Info().Str("transport", "http").Str("tool", tool.Name).Msg("received tool call")

		payload, err := caller.Call(r.Context(), tool.Name, params.Arguments)
		if err != nil {
			metrics.ObserveToolCall(tool.Name, "error")
			auditEvent.ErrorDetail = toolErrorMessage(err)
			auditEvent.ResponseCode = toolErrorStatus(err)
			httputil.RespondProblem(w, r, toolErrorStatus(err), toolErrorMessage(err))
			return
		}
		metrics.ObserveToolCall(tool.Name, "success")
		auditEvent.Result = "success"
		auditEvent.ResponseCode = http.StatusOK
		httputil.RespondJSON(w, http.StatusOK, toolCallResultFromExecution(tool.Name, mode, payload))
	}
}

func handleCallToolSSE(
	registry *ToolRegistry,
	authorizer ToolAuthorizer,
	sessionToken string,
	caller ToolCaller,
	logger zerolog.Logger,
) http.HandlerFunc {
	auditLogger := audit.NewLogger(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		mode := resolvedMode(authorizer)
		requestID := httputil.RequestIDFromContext(r.Context())

		params, tool, rejectionDetail, ok := parseCallToolRequest(w, r, registry, authorizer, sessionToken)
		auditEvent := audit.ToolCallCompletion{
			RequestID: requestID,
			Transport: "http-sse",
			ToolName:  strings.TrimSpace(params.Name),
			Mode:      mode,
			Arguments: params.Arguments,
			Result:    "error",
		}
		defer func() {
			auditEvent.Duration = time.Since(started)
			auditLogger.Complete(auditEvent)
		}()

		if !ok {
			auditEvent.ErrorDetail = rejectionDetail
			return
		}
		auditEvent.ToolName = tool.Name

		controller := http.NewResponseController(w)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		logger.Info().Str("transport", "http-sse").Str("tool", tool.Name).Msg("streaming tool call")

		if err := writeSSEEvent(r.Context(), w, "accepted", map[string]any{
			"tool":      tool.Name,
			"status":    "accepted",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			auditEvent.ErrorDetail = err.Error()
			auditEvent.ResponseCode = http.StatusInternalServerError
			return
		}
		_ = controller.Flush()

		payload, err := caller.Call(r.Context(), tool.Name, params.Arguments)
		if err != nil {
			metrics.ObserveToolCall(tool.Name, "error")
			if writeErr := writeSSEEvent(r.Context(), w, "result", toolCallResultFromError(tool.Name, mode, err)); writeErr != nil {
				auditEvent.ErrorDetail = writeErr.Error()
				auditEvent.ResponseCode = http.StatusInternalServerError
				return
			}
			_ = controller.Flush()
			_ = writeSSEEvent(r.Context(), w, "done", map[string]any{"status": "done"})
			_ = controller.Flush()
			auditEvent.ErrorDetail = toolErrorMessage(err)
			auditEvent.ResponseCode = toolErrorStatus(err)
			return
		}

		metrics.ObserveToolCall(tool.Name, "success")
		if err := writeSSEEvent(r.Context(), w, "result", toolCallResultFromExecution(tool.Name, mode, payload)); err != nil {
			auditEvent.ErrorDetail = err.Error()
			auditEvent.ResponseCode = http.StatusInternalServerError
			return
		}
		_ = controller.Flush()

		_ = writeSSEEvent(r.Context(), w, "done", map[string]any{"status": "done"})
		_ = controller.Flush()
		auditEvent.Result = "success"
		auditEvent.ResponseCode = http.StatusOK
	}
}

func parseCallToolRequest(
	w http.ResponseWriter,
	r *http.Request,
	registry *ToolRegistry,
	authorizer ToolAuthorizer,
	sessionToken string,
) (callToolParams, ToolSpec, string, bool) {
	if err := authenticateHTTPToolCall(r, sessionToken); err != nil {
		status, detail := authFailureResponse(err)
		httputil.RespondProblem(w, r, status, detail)
		return callToolParams{}, ToolSpec{}, detail, false
	}

	var params callToolParams
	if err := decodeJSONStrict(r, &params); err != nil {
		detail := fmt.Sprintf("invalid request body: %v", err)
		httputil.RespondProblem(w, r, http.StatusBadRequest, detail)
		return callToolParams{}, ToolSpec{}, detail, false
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		httputil.RespondProblem(w, r, http.StatusBadRequest, "tool name is required")
		return params, ToolSpec{}, "tool name is required", false
	}

	tool, ok := registry.Lookup(name)
	if !ok {
		detail := fmt.Sprintf("unknown tool: %s", name)
		httputil.RespondProblem(w, r, http.StatusNotFound, detail)
		return params, ToolSpec{}, detail, false
	}
	if err := authorizeToolCall(authorizer, tool); err != nil {
		httputil.RespondProblem(w, r, http.StatusForbidden, err.Error())
		return params, tool, err.Error(), false
	}
	if err := policy.RequireConfirmation(tool.Name, tool.ConfirmationRequired, params.Arguments); err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return params, tool, err.Error(), false
	}

	return params, tool, "", true
}

// authenticateHTTPToolCall enforces bearer auth only when a session token is
// configured; an empty token leaves the HTTP transport open for local use.
func authenticateHTTPToolCall(r *http.Request, sessionToken string) error {
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return nil
	}
	presented := parseBearerToken(r.Header.Get("Authorization"))
	if presented == "" {
		return ErrBearerTokenMissing
	}
	if presented != token {
		return ErrBearerTokenInvalid
	}
	return nil
}

func authFailureResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBearerTokenMissing):
		return http.StatusUnauthorized, "missing or malformed Authorization header; expected Bearer <token>"
	case errors.Is(err, ErrBearerTokenInvalid):
		return http.StatusUnauthorized, "invalid bearer token for MCP session"
	default:
		return http.StatusUnauthorized, err.Error()
	}
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeSSEEvent(ctx context.Context, w http.ResponseWriter, event string, payload any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", strings.TrimSpace(event)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func decodeJSONStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("request must contain exactly one JSON object")
	}
	return nil
}
