package tools

import (
	"context"

	"github.com/aipper/zentao-mcp/internal/zentao"
)

type bugsListArgs struct {
	Assignee string `json:"assignee,omitempty"`
	Status   string `json:"status,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Product  int64  `json:"product,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type bugIDArgs struct {
	ID int64 `json:"id"`
}

type bugsResolveArgs struct {
	ID         int64  `json:"id"`
	Resolution string `json:"resolution,omitempty"`
	Solution   string `json:"solution,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

type bugsCommentedArgs struct {
	ID      int64  `json:"id"`
	Comment string `json:"comment,omitempty"`
}

type bugsVerifyArgs struct {
	ID      int64  `json:"id"`
	Result  string `json:"result"`
	Comment string `json:"comment,omitempty"`
}

type bugsCommentArgs struct {
	ID      int64  `json:"id"`
	Comment string `json:"comment"`
}

func (r *Runner) bugsList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsListArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.Limit < 0 || decoded.Page < 0 || decoded.Product < 0 {
		return nil, validationErrorf("limit, page and product must not be negative")
	}

	listing, err := r.gateway.MyBugs(ctx, zentao.BugFilter{
		Assignee: decoded.Assignee,
		Status:   decoded.Status,
		Keyword:  decoded.Keyword,
		Product:  decoded.Product,
		Page:     decoded.Page,
		Limit:    decoded.Limit,
	})
	if err != nil {
		return nil, mapExecutionError(err, "listing bugs failed")
	}
	return toMap(listing)
}

func (r *Runner) bugsGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugIDArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}

	detail, err := r.gateway.BugDetail(ctx, decoded.ID)
	if err != nil {
		return nil, mapExecutionError(err, "getting bug failed")
	}
	return toMap(detail)
}

func (r *Runner) bugsResolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsResolveArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}

	record, err := r.gateway.ResolveBug(ctx, decoded.ID, zentao.ResolveOptions{
		Resolution: decoded.Resolution,
		Solution:   decoded.Solution,
		Comment:    decoded.Comment,
	})
	if err != nil {
		return nil, mapExecutionError(err, "resolving bug failed")
	}
	return actionResult(decoded.ID, "resolved", record), nil
}

func (r *Runner) bugsClose(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsCommentedArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}

	record, err := r.gateway.CloseBug(ctx, decoded.ID, decoded.Comment)
	if err != nil {
		return nil, mapExecutionError(err, "closing bug failed")
	}
	return actionResult(decoded.ID, "closed", record), nil
}

func (r *Runner) bugsActivate(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsCommentedArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}

	record, err := r.gateway.ActivateBug(ctx, decoded.ID, decoded.Comment)
	if err != nil {
		return nil, mapExecutionError(err, "activating bug failed")
	}
	return actionResult(decoded.ID, "activated", record), nil
}

func (r *Runner) bugsVerify(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsVerifyArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}
	if decoded.Result == "" {
		return nil, validationErrorf("result is required (pass|fail)")
	}

	record, err := r.gateway.VerifyBug(ctx, decoded.ID, decoded.Result, decoded.Comment)
	if err != nil {
		return nil, mapExecutionError(err, "verifying bug failed")
	}
	return actionResult(decoded.ID, "verified", record), nil
}

func (r *Runner) bugsComment(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsCommentArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID <= 0 {
		return nil, validationErrorf("id must be a positive bug identifier")
	}

	record, err := r.gateway.CommentBug(ctx, decoded.ID, decoded.Comment)
	if err != nil {
		return nil, mapExecutionError(err, "commenting on bug failed")
	}
	return actionResult(decoded.ID, "commented", record), nil
}

// actionResult shapes a bug mutation response. The upstream record is passed
// through when present so callers can inspect the post-action state.
func actionResult(id int64, status string, record map[string]any) map[string]any {
	result := map[string]any{
		"id":     id,
		"status": status,
	}
	if len(record) > 0 {
		result["bug"] = record
	}
	return result
}
