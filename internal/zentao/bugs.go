package zentao

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultBugPageSize = 20
	maxBugPageSize     = 200
)

// keywordFields are the free-text fields searched by the client-side keyword filter.
var keywordFields = []string{"title", "keywords", "steps"}

// assigneeKeys are the alternative field names probed for a bug's assignee.
var assigneeKeys = []string{"assignedTo", "assigned_to", "owner"}

// BugFilter selects bugs for MyBugs. A zero Product uses the unscoped /bugs
// path, falling back to the configured default product only when the upstream
// demands a product scope.
type BugFilter struct {
	Assignee string
	Status   string
	Keyword  string
	Product  int64
	Page     int
	Limit    int
}

// BugList is the outcome of one filtered listing.
type BugList struct {
	// Total counts records returned by the upstream before re-filtering.
	Total int `json:"total"`
	// Matched counts records surviving the client-side re-filter.
	Matched int              `json:"matched"`
	Bugs    []map[string]any `json:"bugs"`
}

// BugDetail is one bug record plus image URLs derived from its text fields.
type BugDetail struct {
	ID        int64          `json:"id"`
	Bug       map[string]any `json:"bug"`
	ImageURLs []string       `json:"imageUrls,omitempty"`
}

// MyBugs lists bugs assigned to the configured account (or an explicit
// assignee), filtered server-side for efficiency and re-filtered client-side
// for correctness: the upstream's own filtering is not trusted to be exact.
func (c *Client) MyBugs(ctx context.Context, filter BugFilter) (*BugList, error) {
	assignee := strings.TrimSpace(filter.Assignee)
	if assignee == "" {
		assignee = strings.TrimSpace(c.cfg.Account)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultBugPageSize
	}
	if limit > maxBugPageSize {
		limit = maxBugPageSize
	}

	query := map[string]any{
		"assignedTo": assignee,
		"limit":      limit,
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Page > 0 {
		query["page"] = filter.Page
	}

	path := "/bugs"
	if filter.Product > 0 {
		path = resolveActionPath("/products/{id}/bugs", filter.Product, "")
	}

	envelope, err := c.Call(ctx, Request{Path: path, Method: http.MethodGet, Query: query})
	if err != nil && filter.Product == 0 && c.cfg.DefaultProduct > 0 && c.scopeRequired(err) {
		// The upstream signaled that bug listing must be product-scoped.
		// Retry once against the product-qualified path variant.
		scoped := resolveActionPath("/products/{id}/bugs", c.cfg.DefaultProduct, "")
		c.logger.Debug().Str("path", scoped).Msg("retrying bug listing with product scope")
		envelope, err = c.Call(ctx, Request{Path: scoped, Method: http.MethodGet, Query: query})
	}
	if err != nil {
		return nil, fmt.Errorf("listing bugs: %w", err)
	}

	records := ExtractList(envelope.Data, "bugs")
	matched := filterBugs(records, assignee, filter.Status, filter.Keyword)

	return &BugList{
		Total:   len(records),
		Matched: len(matched),
		Bugs:    matched,
	}, nil
}

// BugDetail fetches a single bug and derives embedded image URLs.
func (c *Client) BugDetail(ctx context.Context, id int64) (*BugDetail, error) {
	if err := requirePositiveID(id); err != nil {
		return nil, err
	}

	envelope, err := c.Call(ctx, Request{
		Path:   resolveActionPath("/bugs/{id}", id, ""),
		Method: http.MethodGet,
	})
	if err != nil {
		return nil, fmt.Errorf("getting bug %d: %w", id, err)
	}

	record := ExtractRecord(envelope.Data, "bug")
	return &BugDetail{
		ID:        id,
		Bug:       record,
		ImageURLs: ExtractImageURLs(record),
	}, nil
}

func (c *Client) scopeRequired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return c.scopeHint(apiErr.Status, apiErr.Body)
}

func filterBugs(records []map[string]any, assignee, status, keyword string) []map[string]any {
	matched := make([]map[string]any, 0, len(records))
	for _, record := range records {
		if !matchesAssignee(record, assignee) {
			continue
		}
		if !matchesStatus(record, status) {
			continue
		}
		if !matchesKeyword(record, keyword) {
			continue
		}
		matched = append(matched, record)
	}
	return matched
}

func matchesAssignee(record map[string]any, assignee string) bool {
	if assignee == "" {
		return true
	}
	return strings.EqualFold(recordString(record, assigneeKeys...), assignee)
}

func matchesStatus(record map[string]any, status string) bool {
	if status == "" {
		return true
	}
	return strings.EqualFold(recordString(record, "status"), status)
}

func matchesKeyword(record map[string]any, keyword string) bool {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return true
	}
	for _, field := range keywordFields {
		if text, ok := record[field].(string); ok {
			if strings.Contains(strings.ToLower(text), needle) {
				return true
			}
		}
	}
	return false
}
