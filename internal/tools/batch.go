package tools

import (
	"context"

	"github.com/aipper/zentao-mcp/internal/zentao"
)

type bugsBatchResolveArgs struct {
	Assignee    string `json:"assignee,omitempty"`
	Status      string `json:"status,omitempty"`
	Keyword     string `json:"keyword,omitempty"`
	Product     int64  `json:"product,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Solution    string `json:"solution,omitempty"`
	Comment     string `json:"comment,omitempty"`
	MaxItems    int    `json:"maxItems,omitempty"`
	StopOnError bool   `json:"stopOnError,omitempty"`
	// Confirm is enforced before dispatch; it stays in the schema so strict
	// decoding accepts the argument the confirmation gate looks at.
	Confirm bool `json:"confirm,omitempty"`
}

func (r *Runner) bugsBatchResolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded bugsBatchResolveArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}
	if decoded.MaxItems < 0 || decoded.Product < 0 {
		return nil, validationErrorf("maxItems and product must not be negative")
	}

	outcome, err := r.gateway.BatchResolveMyBugs(ctx,
		zentao.BugFilter{
			Assignee: decoded.Assignee,
			Status:   decoded.Status,
			Keyword:  decoded.Keyword,
			Product:  decoded.Product,
		},
		zentao.ResolveOptions{
			Resolution: decoded.Resolution,
			Solution:   decoded.Solution,
			Comment:    decoded.Comment,
		},
		decoded.MaxItems,
		decoded.StopOnError,
	)
	if err != nil {
		return nil, mapExecutionError(err, "batch resolve failed")
	}
	return toMap(outcome)
}
