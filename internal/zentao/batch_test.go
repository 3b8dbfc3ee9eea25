package zentao

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func batchUpstream(t *testing.T, bugs []any, failIDs map[string]bool, resolved *atomic.Int32) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api.php/v1/bugs" {
			writeJSON(t, w, http.StatusOK, map[string]any{"bugs": bugs})
			return
		}
		if strings.HasSuffix(r.URL.Path, "/resolve") {
			parts := strings.Split(r.URL.Path, "/")
			id := parts[len(parts)-2]
			if failIDs[id] {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte("cannot resolve"))
				return
			}
			if resolved != nil {
				resolved.Add(1)
			}
			writeJSON(t, w, http.StatusOK, map[string]any{})
			return
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
	}
}

func activeBugs(n int) []any {
	bugs := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		bugs = append(bugs, bugRecord(i, "dev1", "active", fmt.Sprintf("bug %d", i)))
	}
	return bugs
}

func TestBatchResolveMyBugs_AccountingIdentity(t *testing.T) {
	var resolved atomic.Int32
	server := newTestUpstream(t, batchUpstream(t, activeBugs(4), map[string]bool{"2": true}, &resolved))
	client := newTestClient(t, server)

	outcome, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 10, false)
	require.NoError(t, err)

	require.Equal(t, 4, outcome.Requested)
	require.Equal(t, 4, outcome.Attempted)
	require.Equal(t, 3, outcome.Resolved)
	require.Equal(t, 1, outcome.Failed)
	require.Equal(t, outcome.Attempted, outcome.Resolved+outcome.Failed)
	require.Len(t, outcome.Success, 3)
	require.Len(t, outcome.Errors, 1)
	require.Equal(t, int64(2), outcome.Errors[0].ID)
}

func TestBatchResolveMyBugs_StopOnErrorHaltsAtThirdCandidate(t *testing.T) {
	var resolved atomic.Int32
	server := newTestUpstream(t, batchUpstream(t, activeBugs(5), map[string]bool{"3": true}, &resolved))
	client := newTestClient(t, server)

	outcome, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 10, true)
	require.NoError(t, err)

	require.Equal(t, 5, outcome.Requested)
	require.Equal(t, 3, outcome.Attempted)
	require.Equal(t, 2, outcome.Resolved)
	require.Equal(t, 1, outcome.Failed)
	// The remaining two candidates were never touched.
	require.Equal(t, int32(2), resolved.Load())
}

func TestBatchResolveMyBugs_TruncatesToMaxItems(t *testing.T) {
	server := newTestUpstream(t, batchUpstream(t, activeBugs(6), nil, nil))
	client := newTestClient(t, server)

	outcome, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 2, false)
	require.NoError(t, err)

	require.Equal(t, 6, outcome.Requested)
	require.Equal(t, 2, outcome.Attempted)
	require.Equal(t, 2, outcome.Resolved)
	require.LessOrEqual(t, outcome.Attempted, outcome.Requested)
}

func TestBatchResolveMyBugs_MissingIDFailsWithoutResolveCall(t *testing.T) {
	bugs := []any{
		map[string]any{"assignedTo": "dev1", "status": "active", "title": "no id"},
		bugRecord(2, "dev1", "active", "ok"),
	}
	var resolved atomic.Int32
	server := newTestUpstream(t, batchUpstream(t, bugs, nil, &resolved))
	client := newTestClient(t, server)

	outcome, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 10, false)
	require.NoError(t, err)

	require.Equal(t, 2, outcome.Attempted)
	require.Equal(t, 1, outcome.Resolved)
	require.Equal(t, 1, outcome.Failed)
	require.Equal(t, int32(1), resolved.Load())
	require.Contains(t, outcome.Errors[0].Error, "no recognizable id")
}

func TestBatchResolveMyBugs_StopOnErrorAppliesToMissingID(t *testing.T) {
	bugs := []any{
		map[string]any{"assignedTo": "dev1", "status": "active", "title": "no id"},
		bugRecord(2, "dev1", "active", "ok"),
	}
	var resolved atomic.Int32
	server := newTestUpstream(t, batchUpstream(t, bugs, nil, &resolved))
	client := newTestClient(t, server)

	outcome, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 10, true)
	require.NoError(t, err)

	require.Equal(t, 1, outcome.Attempted)
	require.Equal(t, 1, outcome.Failed)
	require.Zero(t, resolved.Load())
}

func TestBatchResolveMyBugs_ListFailurePropagates(t *testing.T) {
	server := newTestUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client := newTestClient(t, server)

	_, err := client.BatchResolveMyBugs(context.Background(), BugFilter{}, ResolveOptions{}, 10, false)
	require.Error(t, err)
}
