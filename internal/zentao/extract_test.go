package zentao

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractList_StrategyOrder(t *testing.T) {
	bug := map[string]any{"id": float64(1)}

	cases := []struct {
		name string
		data any
	}{
		{"named field", map[string]any{"bugs": []any{bug}}},
		{"nested data field", map[string]any{"data": map[string]any{"bugs": []any{bug}}}},
		{"bare list", []any{bug}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := ExtractList(tc.data, "bugs")
			require.Len(t, records, 1)
			require.Equal(t, float64(1), records[0]["id"])
		})
	}
}

func TestExtractList_NamedFieldWinsOverNested(t *testing.T) {
	data := map[string]any{
		"bugs": []any{map[string]any{"id": float64(1)}},
		"data": map[string]any{"bugs": []any{map[string]any{"id": float64(2)}}},
	}
	records := ExtractList(data, "bugs")
	require.Len(t, records, 1)
	require.Equal(t, float64(1), records[0]["id"])
}

func TestExtractList_NoMatchReturnsEmptyNotNilError(t *testing.T) {
	require.Empty(t, ExtractList(map[string]any{"total": float64(0)}, "bugs"))
	require.Empty(t, ExtractList("plain text", "bugs"))
	require.Empty(t, ExtractList(nil, "bugs"))
}

func TestExtractRecord_StrategyOrder(t *testing.T) {
	record := ExtractRecord(map[string]any{"bug": map[string]any{"id": float64(3)}}, "bug")
	require.Equal(t, float64(3), record["id"])

	record = ExtractRecord(map[string]any{"data": map[string]any{"bug": map[string]any{"id": float64(4)}}}, "bug")
	require.Equal(t, float64(4), record["id"])

	// A bare top-level object is returned as-is.
	record = ExtractRecord(map[string]any{"id": float64(5)}, "bug")
	require.Equal(t, float64(5), record["id"])
}

func TestExtractRecord_ExcludesArraysAndScalars(t *testing.T) {
	require.Nil(t, ExtractRecord([]any{map[string]any{"id": float64(1)}}, "bug"))
	require.Nil(t, ExtractRecord("text", "bug"))
	require.Nil(t, ExtractRecord(nil, "bug"))
}

func TestRecordID_ProbesAlternativeKeys(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]any
		want   int64
	}{
		{"id", map[string]any{"id": float64(12)}, 12},
		{"bugID", map[string]any{"bugID": float64(34)}, 34},
		{"bug_id", map[string]any{"bug_id": "56"}, 56},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := RecordID(tc.record)
			require.True(t, ok)
			require.Equal(t, tc.want, id)
		})
	}
}

func TestRecordID_RejectsMissingAndInvalid(t *testing.T) {
	_, ok := RecordID(map[string]any{"title": "no id"})
	require.False(t, ok)

	_, ok = RecordID(map[string]any{"id": "abc"})
	require.False(t, ok)

	_, ok = RecordID(map[string]any{"id": float64(0)})
	require.False(t, ok)
}
