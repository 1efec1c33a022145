package qualifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/model"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

func record(key any, bins map[string]any) *model.Record {
	return &model.Record{
		Key:  model.Key{Namespace: "test", Set: "people", Value: key},
		Bins: bins,
	}
}

func TestMatches(t *testing.T) {
	rec := record(int64(1), map[string]any{
		"lastName": "Smith",
		"age":      int64(35),
		"tags":     []any{"a", "b"},
		"addresses": map[string]any{
			"work": map[string]any{"zip": int64(10001)},
			"home": map[string]any{"zip": int64(20002)},
		},
	})

	mustPath := func(s string) ctxpath.Path {
		p, err := ctxpath.Parse(s)
		require.NoError(t, err)
		return p
	}

	tests := []struct {
		name string
		tree qualifier.Qualifier
		want bool
	}{
		{name: "eq hit", tree: qualifier.Eq("lastName", "Smith"), want: true},
		{name: "eq miss", tree: qualifier.Eq("lastName", "Jones"), want: false},
		{name: "missing bin", tree: qualifier.Eq("nope", 1), want: false},
		{name: "numeric compare across widths", tree: qualifier.Gt("age", 30), want: true},
		{name: "between", tree: qualifier.Between("age", int64(30), int64(40)), want: true},
		{name: "not eq", tree: qualifier.NotEq("age", int64(36)), want: true},
		{name: "in", tree: qualifier.In("age", int64(1), int64(35)), want: true},
		{
			name: "list collection membership",
			tree: qualifier.Eq("tags", "b").WithCollection(index.CollectionList),
			want: true,
		},
		{
			name: "map keys collection",
			tree: qualifier.Eq("addresses", "work").WithCollection(index.CollectionMapKeys),
			want: true,
		},
		{
			name: "context path navigation",
			tree: qualifier.Eq("addresses", int64(10001)).WithPath(mustPath("work.zip")),
			want: true,
		},
		{
			name: "context path miss is no match",
			tree: qualifier.Eq("addresses", int64(1)).WithPath(mustPath("gone.zip")),
			want: false,
		},
		{
			name: "identity leaf matches the key",
			tree: qualifier.ID(int64(1)),
			want: true,
		},
		{
			name: "and combines",
			tree: &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
				qualifier.Eq("lastName", "Smith"),
				qualifier.Gt("age", int64(30)),
			}},
			want: true,
		},
		{
			name: "or short circuits",
			tree: &qualifier.Compound{Op: qualifier.Or, Children: []qualifier.Qualifier{
				qualifier.Eq("lastName", "Jones"),
				qualifier.Eq("lastName", "Smith"),
			}},
			want: true,
		},
		{
			name: "and fails on one false child",
			tree: &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
				qualifier.Eq("lastName", "Smith"),
				qualifier.Eq("age", int64(1)),
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := qualifier.Matches(tt.tree, rec)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesUncomparableOperands(t *testing.T) {
	rec := record([]byte{0x01}, map[string]any{
		"tags":  []any{"a", "b"},
		"photo": []byte{0xca, 0xfe},
	})

	tests := []struct {
		name string
		tree qualifier.Qualifier
		want bool
	}{
		{name: "identity over byte-slice key", tree: qualifier.ID([]byte{0x01}), want: true},
		{name: "identity over byte-slice key miss", tree: qualifier.ID([]byte{0x02}), want: false},
		{name: "equality against a whole list", tree: qualifier.Eq("tags", []any{"a", "b"}), want: true},
		{name: "list operand differs", tree: qualifier.Eq("tags", []any{"a"}), want: false},
		{name: "byte-slice bin by content", tree: qualifier.Eq("photo", []byte{0xca, 0xfe}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			var err error
			require.NotPanics(t, func() { got, err = qualifier.Matches(tt.tree, rec) })
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesRejectsUnknownOperator(t *testing.T) {
	tree := &qualifier.Compound{Op: qualifier.LogicOp(7), Children: []qualifier.Qualifier{
		qualifier.Eq("a", 1),
	}}
	_, err := qualifier.Matches(tree, record(int64(1), nil))
	require.ErrorIs(t, err, qualifier.ErrUnsupportedOperator)
}
