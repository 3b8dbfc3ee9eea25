package tools

import "context"

type projectsListArgs struct {
	Limit int `json:"limit,omitempty"`
}

func (r *Runner) projectsList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded projectsListArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.Limit < 0 {
		return nil, validationErrorf("limit must not be negative")
	}

	listing, err := r.gateway.MyProjects(ctx, decoded.Limit)
	if err != nil {
		return nil, mapExecutionError(err, "listing projects failed")
	}
	return toMap(listing)
}
