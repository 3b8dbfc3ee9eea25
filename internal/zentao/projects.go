package zentao

import (
	"context"
	"fmt"
	"net/http"
)

// ProjectList holds the projects visible to the configured account.
type ProjectList struct {
	Total    int              `json:"total"`
	Projects []map[string]any `json:"projects"`
}

// MyProjects lists projects the configured account can see.
func (c *Client) MyProjects(ctx context.Context, limit int) (*ProjectList, error) {
	query := map[string]any{}
	if limit > 0 {
		query["limit"] = limit
	}

	envelope, err := c.Call(ctx, Request{
		Path:   "/projects",
		Method: http.MethodGet,
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	projects := ExtractList(envelope.Data, "projects")
	return &ProjectList{
		Total:    len(projects),
		Projects: projects,
	}, nil
}
