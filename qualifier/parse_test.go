package qualifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

func TestParseFilter(t *testing.T) {
	q, err := qualifier.ParseFilter(`lastName == "Smith" AND age > 30`)
	require.NoError(t, err)

	compound, ok := q.(*qualifier.Compound)
	require.True(t, ok)
	require.Equal(t, qualifier.And, compound.Op)
	require.Len(t, compound.Children, 2)

	last, ok := compound.Children[0].(*qualifier.Leaf)
	require.True(t, ok)
	require.Equal(t, "lastName", last.Bin)
	require.Equal(t, qualifier.OpEq, last.Op)
	require.Equal(t, []any{"Smith"}, last.Values)

	age, ok := compound.Children[1].(*qualifier.Leaf)
	require.True(t, ok)
	require.Equal(t, "age", age.Bin)
	require.Equal(t, qualifier.OpGt, age.Op)
	require.Equal(t, []any{int64(30)}, age.Values)
}

func TestParseFilterComparisons(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		op     qualifier.CompareOp
		values []any
	}{
		{name: "eq", filter: `a == 1`, op: qualifier.OpEq, values: []any{int64(1)}},
		{name: "ne", filter: `a != 1`, op: qualifier.OpNotEq, values: []any{int64(1)}},
		{name: "ge", filter: `a >= 1`, op: qualifier.OpGtEq, values: []any{int64(1)}},
		{name: "lt", filter: `a < 1`, op: qualifier.OpLt, values: []any{int64(1)}},
		{name: "le", filter: `a <= 1.5`, op: qualifier.OpLtEq, values: []any{1.5}},
		{name: "in", filter: `a IN (1, 2)`, op: qualifier.OpIn, values: []any{int64(1), int64(2)}},
		{
			name:   "between",
			filter: `a BETWEEN 1 AND 10`,
			op:     qualifier.OpBetween,
			values: []any{int64(1), int64(10)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := qualifier.ParseFilter(tt.filter)
			require.NoError(t, err)
			leaf, ok := q.(*qualifier.Leaf)
			require.True(t, ok, "got %T", q)
			require.Equal(t, "a", leaf.Bin)
			require.Equal(t, tt.op, leaf.Op)
			require.Equal(t, tt.values, leaf.Values)
		})
	}
}

func TestParseFilterIdentity(t *testing.T) {
	q, err := qualifier.ParseFilter(`_id == 5`)
	require.NoError(t, err)
	leaf, ok := q.(*qualifier.Leaf)
	require.True(t, ok)
	require.True(t, leaf.Identity)
	require.Equal(t, []any{int64(5)}, leaf.Values)
}

func TestParseFilterContextPath(t *testing.T) {
	q, err := qualifier.ParseFilter("addresses.work.zip == 10001")
	require.NoError(t, err)
	leaf, ok := q.(*qualifier.Leaf)
	require.True(t, ok)
	require.Equal(t, "addresses", leaf.Bin)
	want := ctxpath.Path{
		{Kind: ctxpath.MapKey, Value: "work"},
		{Kind: ctxpath.MapKey, Value: "zip"},
	}
	require.True(t, want.Equal(leaf.Path), "got %v", leaf.Path)
}

func TestParseFilterErrors(t *testing.T) {
	for _, filter := range []string{
		"",
		"== 3",
		"a ==",
	} {
		_, err := qualifier.ParseFilter(filter)
		require.Error(t, err, "filter %q", filter)
	}
}
