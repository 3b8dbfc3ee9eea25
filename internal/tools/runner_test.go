package tools

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aipper/zentao-mcp/internal/zentao"
)

type mockGateway struct {
	myProjects    func(ctx context.Context, limit int) (*zentao.ProjectList, error)
	myBugs        func(ctx context.Context, filter zentao.BugFilter) (*zentao.BugList, error)
	bugDetail     func(ctx context.Context, id int64) (*zentao.BugDetail, error)
	resolveBug    func(ctx context.Context, id int64, opts zentao.ResolveOptions) (map[string]any, error)
	closeBug      func(ctx context.Context, id int64, comment string) (map[string]any, error)
	activateBug   func(ctx context.Context, id int64, comment string) (map[string]any, error)
	verifyBug     func(ctx context.Context, id int64, result, comment string) (map[string]any, error)
	commentBug    func(ctx context.Context, id int64, text string) (map[string]any, error)
	batchResolve func(ctx context.Context, filter zentao.BugFilter, resolve zentao.ResolveOptions, maxItems int, stopOnError bool) (*zentao.BatchOutcome, error)
	resolveToken func(ctx context.Context, force bool) (zentao.Grant, error)
}

func (m *mockGateway) MyProjects(ctx context.Context, limit int) (*zentao.ProjectList, error) {
	return m.myProjects(ctx, limit)
}

func (m *mockGateway) MyBugs(ctx context.Context, filter zentao.BugFilter) (*zentao.BugList, error) {
	return m.myBugs(ctx, filter)
}

func (m *mockGateway) BugDetail(ctx context.Context, id int64) (*zentao.BugDetail, error) {
	return m.bugDetail(ctx, id)
}

func (m *mockGateway) ResolveBug(ctx context.Context, id int64, opts zentao.ResolveOptions) (map[string]any, error) {
	return m.resolveBug(ctx, id, opts)
}

func (m *mockGateway) CloseBug(ctx context.Context, id int64, comment string) (map[string]any, error) {
	return m.closeBug(ctx, id, comment)
}

func (m *mockGateway) ActivateBug(ctx context.Context, id int64, comment string) (map[string]any, error) {
	return m.activateBug(ctx, id, comment)
}

func (m *mockGateway) VerifyBug(ctx context.Context, id int64, result, comment string) (map[string]any, error) {
	return m.verifyBug(ctx, id, result, comment)
}

func (m *mockGateway) CommentBug(ctx context.Context, id int64, text string) (map[string]any, error) {
	return m.commentBug(ctx, id, text)
}

func (m *mockGateway) BatchResolveMyBugs(ctx context.Context, filter zentao.BugFilter, resolve zentao.ResolveOptions, maxItems int, stopOnError bool) (*zentao.BatchOutcome, error) {
	return m.batchResolve(ctx, filter, resolve, maxItems, stopOnError)
}

func (m *mockGateway) Token(ctx context.Context, force bool) (zentao.Grant, error) {
	return m.resolveToken(ctx, force)
}

func toolStatus(t *testing.T, err error) int {
	t.Helper()
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	return toolErr.StatusCode()
}

func TestCall_UnknownTool(t *testing.T) {
	runner := NewRunner(&mockGateway{}, false)

	_, err := runner.Call(context.Background(), "bugs.nuke", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, toolStatus(t, err))
	require.Contains(t, err.Error(), "bugs.nuke")
}

func TestCall_RejectsUnknownArguments(t *testing.T) {
	runner := NewRunner(&mockGateway{}, false)

	_, err := runner.Call(context.Background(), "bugs.get", map[string]any{
		"id":      float64(7),
		"surprise": true,
	})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, toolStatus(t, err))
}

func TestProjectsList_PassesLimit(t *testing.T) {
	var gotLimit int
	gateway := &mockGateway{
		myProjects: func(_ context.Context, limit int) (*zentao.ProjectList, error) {
			gotLimit = limit
			return &zentao.ProjectList{
				Total:    1,
				Projects: []map[string]any{{"id": float64(3), "name": "gateway"}},
			}, nil
		},
	}
	runner := NewRunner(gateway, false)

	result, err := runner.Call(context.Background(), "projects.list", map[string]any{"limit": float64(5)})
	require.NoError(t, err)
	require.Equal(t, 5, gotLimit)
	require.EqualValues(t, 1, result["total"])
}

func TestBugsList_MapsFilter(t *testing.T) {
	var gotFilter zentao.BugFilter
	gateway := &mockGateway{
		myBugs: func(_ context.Context, filter zentao.BugFilter) (*zentao.BugList, error) {
			gotFilter = filter
			return &zentao.BugList{Total: 2, Matched: 1, Bugs: []map[string]any{{"id": float64(9)}}}, nil
		},
	}
	runner := NewRunner(gateway, false)

	result, err := runner.Call(context.Background(), "bugs.list", map[string]any{
		"assignee": "dev1",
		"status":   "active",
		"keyword":  "crash",
		"product":  float64(4),
		"page":     float64(2),
		"limit":    float64(50),
	})
	require.NoError(t, err)
	require.Equal(t, zentao.BugFilter{
		Assignee: "dev1",
		Status:   "active",
		Keyword:  "crash",
		Product:  4,
		Page:     2,
		Limit:    50,
	}, gotFilter)
	require.EqualValues(t, 1, result["matched"])
}

func TestBugsGet_RequiresPositiveID(t *testing.T) {
	runner := NewRunner(&mockGateway{}, false)

	_, err := runner.Call(context.Background(), "bugs.get", map[string]any{"id": float64(0)})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, toolStatus(t, err))
}

func TestBugsResolve_PassesOptions(t *testing.T) {
	var gotID int64
	var gotOpts zentao.ResolveOptions
	gateway := &mockGateway{
		resolveBug: func(_ context.Context, id int64, opts zentao.ResolveOptions) (map[string]any, error) {
			gotID = id
			gotOpts = opts
			return map[string]any{"id": float64(12), "status": "resolved"}, nil
		},
	}
	runner := NewRunner(gateway, false)

	result, err := runner.Call(context.Background(), "bugs.resolve", map[string]any{
		"id":         float64(12),
		"resolution": "fixed",
		"solution":   "restart the indexer",
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), gotID)
	require.Equal(t, "fixed", gotOpts.Resolution)
	require.Equal(t, "restart the indexer", gotOpts.Solution)
	require.Equal(t, "resolved", result["status"])
	require.NotNil(t, result["bug"])
}

func TestBugsVerify_RequiresResult(t *testing.T) {
	runner := NewRunner(&mockGateway{}, false)

	_, err := runner.Call(context.Background(), "bugs.verify", map[string]any{"id": float64(3)})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, toolStatus(t, err))
	require.Contains(t, err.Error(), "result")
}

func TestBugsBatchResolve_PassesThroughOutcome(t *testing.T) {
	var gotMax int
	var gotStop bool
	gateway := &mockGateway{
		batchResolve: func(_ context.Context, _ zentao.BugFilter, _ zentao.ResolveOptions, maxItems int, stopOnError bool) (*zentao.BatchOutcome, error) {
			gotMax = maxItems
			gotStop = stopOnError
			return &zentao.BatchOutcome{
				Requested: 3,
				Attempted: 3,
				Resolved:  2,
				Failed:    1,
				Success:   []zentao.BatchItem{{ID: 1, Status: "resolved"}, {ID: 2, Status: "resolved"}},
				Errors:    []zentao.BatchError{{ID: 3, Error: "conflict"}},
			}, nil
		},
	}
	runner := NewRunner(gateway, false)

	result, err := runner.Call(context.Background(), "bugs.batch_resolve", map[string]any{
		"status":      "active",
		"maxItems":    float64(10),
		"stopOnError": true,
		"confirm":     true,
	})
	require.NoError(t, err)
	require.Equal(t, 10, gotMax)
	require.True(t, gotStop)
	require.EqualValues(t, 3, result["requested"])
	require.EqualValues(t, 2, result["resolved"])
	require.EqualValues(t, 1, result["failed"])
}

func TestAuthTokenGet_MasksByDefault(t *testing.T) {
	gateway := &mockGateway{
		resolveToken: func(_ context.Context, force bool) (zentao.Grant, error) {
			require.False(t, force)
			return zentao.Grant{Token: "abcd1234efgh", Source: zentao.TokenSourceLogin}, nil
		},
	}
	runner := NewRunner(gateway, false)

	result, err := runner.Call(context.Background(), "auth.token.get", nil)
	require.NoError(t, err)
	require.Equal(t, "abcd********", result["token"])
	require.Equal(t, "login", result["source"])
	require.Equal(t, true, result["masked"])
}

func TestAuthTokenGet_RevealsWhenConfigured(t *testing.T) {
	gateway := &mockGateway{
		resolveToken: func(_ context.Context, force bool) (zentao.Grant, error) {
			require.True(t, force)
			return zentao.Grant{Token: "abcd1234efgh", Source: zentao.TokenSourceCache}, nil
		},
	}
	runner := NewRunner(gateway, true)

	result, err := runner.Call(context.Background(), "auth.token.get", map[string]any{"force": true})
	require.NoError(t, err)
	require.Equal(t, "abcd1234efgh", result["token"])
	require.Equal(t, false, result["masked"])
}

func TestMapExecutionError_StatusPassthrough(t *testing.T) {
	upstream := &zentao.APIError{Status: http.StatusConflict, Body: "already resolved"}
	gateway := &mockGateway{
		resolveBug: func(_ context.Context, _ int64, _ zentao.ResolveOptions) (map[string]any, error) {
			return nil, upstream
		},
	}
	runner := NewRunner(gateway, false)

	_, err := runner.Call(context.Background(), "bugs.resolve", map[string]any{"id": float64(8)})
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, toolStatus(t, err))
}

func TestMapExecutionError_Timeout(t *testing.T) {
	gateway := &mockGateway{
		myBugs: func(_ context.Context, _ zentao.BugFilter) (*zentao.BugList, error) {
			return nil, zentao.ErrTimeout
		},
	}
	runner := NewRunner(gateway, false)

	_, err := runner.Call(context.Background(), "bugs.list", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusGatewayTimeout, toolStatus(t, err))
}

func TestMapExecutionError_Canceled(t *testing.T) {
	gateway := &mockGateway{
		bugDetail: func(_ context.Context, _ int64) (*zentao.BugDetail, error) {
			return nil, context.Canceled
		},
	}
	runner := NewRunner(gateway, false)

	_, err := runner.Call(context.Background(), "bugs.get", map[string]any{"id": float64(5)})
	require.Error(t, err)
	require.Equal(t, http.StatusRequestTimeout, toolStatus(t, err))
}

func TestMapExecutionError_MissingCredentials(t *testing.T) {
	gateway := &mockGateway{
		resolveToken: func(_ context.Context, _ bool) (zentao.Grant, error) {
			return zentao.Grant{}, zentao.ErrMissingCredentials
		},
	}
	runner := NewRunner(gateway, false)

	_, err := runner.Call(context.Background(), "auth.token.get", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, toolStatus(t, err))
}

func TestMapExecutionError_Default(t *testing.T) {
	gateway := &mockGateway{
		myProjects: func(_ context.Context, _ int) (*zentao.ProjectList, error) {
			return nil, errors.New("boom")
		},
	}
	runner := NewRunner(gateway, false)

	_, err := runner.Call(context.Background(), "projects.list", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, toolStatus(t, err))
}
