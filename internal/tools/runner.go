// Package tools executes MCP tool calls against the ZenTao gateway client.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aipper/zentao-mcp/internal/zentao"
)

// Gateway is the client surface the runner depends on. *zentao.Client
// satisfies it; tests substitute function-field mocks.
type Gateway interface {
	MyProjects(ctx context.Context, limit int) (*zentao.ProjectList, error)
	MyBugs(ctx context.Context, filter zentao.BugFilter) (*zentao.BugList, error)
	BugDetail(ctx context.Context, id int64) (*zentao.BugDetail, error)
	ResolveBug(ctx context.Context, id int64, opts zentao.ResolveOptions) (map[string]any, error)
	CloseBug(ctx context.Context, id int64, comment string) (map[string]any, error)
	ActivateBug(ctx context.Context, id int64, comment string) (map[string]any, error)
	VerifyBug(ctx context.Context, id int64, result, comment string) (map[string]any, error)
	CommentBug(ctx context.Context, id int64, text string) (map[string]any, error)
	BatchResolveMyBugs(ctx context.Context, filter zentao.BugFilter, resolve zentao.ResolveOptions, maxItems int, stopOnError bool) (*zentao.BatchOutcome, error)
	Token(ctx context.Context, force bool) (zentao.Grant, error)
}

// Runner dispatches tool names to gateway operations.
type Runner struct {
	gateway     Gateway
	revealToken bool
}

// NewRunner creates a tool runner.
func NewRunner(gateway Gateway, revealToken bool) *Runner {
	return &Runner{
		gateway:     gateway,
		revealToken: revealToken,
	}
}

// ToolError carries an HTTP-style status code and message for tool failures.
type ToolError struct {
	statusCode int
	message    string
}

// Error implements error.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.message)
}

// StatusCode returns the attached status code.
func (e *ToolError) StatusCode() int {
	if e == nil || e.statusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.statusCode
}

// Call executes one tool by name and returns JSON-like map content.
func (r *Runner) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch strings.TrimSpace(name) {
	case "projects.list":
		return r.projectsList(ctx, args)
	case "bugs.list":
		return r.bugsList(ctx, args)
	case "bugs.get":
		return r.bugsGet(ctx, args)
	case "bugs.resolve":
		return r.bugsResolve(ctx, args)
	case "bugs.close":
		return r.bugsClose(ctx, args)
	case "bugs.activate":
		return r.bugsActivate(ctx, args)
	case "bugs.verify":
		return r.bugsVerify(ctx, args)
	case "bugs.comment":
		return r.bugsComment(ctx, args)
	case "bugs.batch_resolve":
		return r.bugsBatchResolve(ctx, args)
	case "auth.token.get":
		return r.authTokenGet(ctx, args)
	default:
		return nil, validationErrorf("unknown tool %q", strings.TrimSpace(name))
	}
}

func validationErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusBadRequest,
		message:    fmt.Sprintf(format, args...),
	}
}

// mapExecutionError translates gateway failures into tool errors with a
// meaningful status. Upstream status codes pass through untranslated.
func mapExecutionError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	type statusCoder interface{ StatusCode() int }
	var withStatus statusCoder
	if errors.As(err, &withStatus) {
		return &ToolError{
			statusCode: withStatus.StatusCode(),
			message:    fmt.Sprintf("%s: %v", fallback, err),
		}
	}

	switch {
	case errors.Is(err, zentao.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &ToolError{
			statusCode: http.StatusGatewayTimeout,
			message:    fallback + ": request timed out",
		}
	case errors.Is(err, context.Canceled):
		return &ToolError{
			statusCode: http.StatusRequestTimeout,
			message:    fallback + ": request canceled",
		}
	case errors.Is(err, zentao.ErrInvalidVerifyResult),
		errors.Is(err, zentao.ErrInvalidPath):
		return &ToolError{
			statusCode: http.StatusBadRequest,
			message:    fmt.Sprintf("%s: %v", fallback, err),
		}
	case errors.Is(err, zentao.ErrMissingCredentials),
		errors.Is(err, zentao.ErrTokenFieldMissing):
		return &ToolError{
			statusCode: http.StatusUnauthorized,
			message:    fmt.Sprintf("%s: %v", fallback, err),
		}
	default:
		return &ToolError{
			statusCode: http.StatusInternalServerError,
			message:    fmt.Sprintf("%s: %v", fallback, err),
		}
	}
}

func decodeArgsStrict(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	if decoder.More() {
		return validationErrorf("tool arguments must be a single JSON object")
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool response: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding tool response: %w", err)
	}
	return decoded, nil
}
