package zentao

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Action path templates. The {id} placeholder is substituted before dispatch.
const (
	resolvePathTemplate  = "/bugs/{id}/resolve"
	closePathTemplate    = "/bugs/{id}/close"
	activatePathTemplate = "/bugs/{id}/activate"
	commentPathTemplate  = "/bugs/{id}/comment"

	defaultResolution = "fixed"
	solutionLabel     = "Solution"
)

// ResolveOptions configures a resolve action. The emitted comment uses strict
// precedence: Solution (wrapped with a fixed label), then Comment, then a
// generated fallback naming the resolution. Only one source is ever used.
type ResolveOptions struct {
	Resolution string
	Solution   string
	Comment    string
}

// ResolveBug marks one bug resolved.
func (c *Client) ResolveBug(ctx context.Context, id int64, opts ResolveOptions) (map[string]any, error) {
	if err := requirePositiveID(id); err != nil {
		return nil, err
	}

	resolution := strings.TrimSpace(opts.Resolution)
	if resolution == "" {
		resolution = defaultResolution
	}

	body := map[string]any{
		"resolution": resolution,
		"comment":    resolveComment(resolution, opts),
	}

	record, err := c.postAction(ctx, resolvePathTemplate, id, body)
	if err != nil {
		return nil, fmt.Errorf("resolving bug %d: %w", id, err)
	}
	return record, nil
}

// CloseBug closes one bug with an optional comment.
func (c *Client) CloseBug(ctx context.Context, id int64, comment string) (map[string]any, error) {
	if err := requirePositiveID(id); err != nil {
		return nil, err
	}
	record, err := c.postAction(ctx, closePathTemplate, id, optionalComment(comment))
	if err != nil {
		return nil, fmt.Errorf("closing bug %d: %w", id, err)
	}
	return record, nil
}

// ActivateBug reopens one bug with an optional comment.
func (c *Client) ActivateBug(ctx context.Context, id int64, comment string) (map[string]any, error) {
	if err := requirePositiveID(id); err != nil {
		return nil, err
	}
	record, err := c.postAction(ctx, activatePathTemplate, id, optionalComment(comment))
	if err != nil {
		return nil, fmt.Errorf("activating bug %d: %w", id, err)
	}
	return record, nil
}

// VerifyBug is a pure client-side dispatch: "pass" closes the bug, "fail"
// reactivates it. Any other result fails before any network call.
func (c *Client) VerifyBug(ctx context.Context, id int64, result, comment string) (map[string]any, error) {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "pass":
		return c.CloseBug(ctx, id, comment)
	case "fail":
		return c.ActivateBug(ctx, id, comment)
	default:
		return nil, fmt.Errorf("%w, got %q", ErrInvalidVerifyResult, result)
	}
}

// CommentBug adds a comment to one bug. An HTTP 404 on the comment path is
// retried exactly once against the pluralized path variant; if that also
// fails, the pluralized path's error is surfaced.
func (c *Client) CommentBug(ctx context.Context, id int64, text string) (map[string]any, error) {
	if err := requirePositiveID(id); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, validationErrorf("comment text is required")
	}

	body := map[string]any{"comment": trimmed}
	record, err := c.postAction(ctx, commentPathTemplate, id, body)
	if err != nil && isNotFound(err) {
		plural := pluralizePath(commentPathTemplate)
		c.logger.Debug().Str("path", plural).Int64("bug", id).Msg("comment path returned 404, retrying pluralized variant")
		record, err = c.postAction(ctx, plural, id, body)
	}
	if err != nil {
		return nil, fmt.Errorf("commenting on bug %d: %w", id, err)
	}
	return record, nil
}

func (c *Client) postAction(ctx context.Context, template string, id int64, body map[string]any) (map[string]any, error) {
	envelope, err := c.Call(ctx, Request{
		Path:   resolveActionPath(template, id, ""),
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return ExtractRecord(envelope.Data, "bug"), nil
}

func resolveComment(resolution string, opts ResolveOptions) string {
	if solution := strings.TrimSpace(opts.Solution); solution != "" {
		return fmt.Sprintf("%s: %s", solutionLabel, solution)
	}
	if comment := strings.TrimSpace(opts.Comment); comment != "" {
		return comment
	}
	return fmt.Sprintf("Resolved as %s", resolution)
}

func optionalComment(comment string) map[string]any {
	body := map[string]any{}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		body["comment"] = trimmed
	}
	return body
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func pluralizePath(template string) string {
	if strings.HasSuffix(template, "s") {
		return template
	}
	return template + "s"
}
