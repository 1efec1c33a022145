package qualifier_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/qualifier"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tree    qualifier.Qualifier
		wantErr string
	}{
		{
			name: "plain range is fine",
			tree: qualifier.Gt("age", int64(30)),
		},
		{
			name:    "strictly greater than max can never match",
			tree:    qualifier.Gt("age", int64(math.MaxInt64)),
			wantErr: "strictly greater",
		},
		{
			name:    "strictly less than min can never match",
			tree:    qualifier.Lt("age", int64(math.MinInt64)),
			wantErr: "strictly less",
		},
		{
			name:    "strictly less than zero unsigned can never match",
			tree:    qualifier.Lt("age", uint32(0)),
			wantErr: "strictly less",
		},
		{
			name: "greater-or-equal max is satisfiable",
			tree: qualifier.GtEq("age", int64(math.MaxInt64)),
		},
		{
			name: "equality on max is fine",
			tree: qualifier.Eq("age", int64(math.MaxInt64)),
		},
		{
			name:    "ordering over an unordered collection",
			tree:    qualifier.Lt("tags", map[string]any{"a": 1}),
			wantErr: "ordered operand",
		},
		{
			name: "ordering over a sequence is fine",
			tree: qualifier.Between("score", int64(1), int64(10)),
		},
		{
			name: "membership accepts any collection shape",
			tree: qualifier.In("tags", map[string]any{"a": 1}),
		},
		{
			name: "validation recurses into compounds",
			tree: &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
				qualifier.Eq("name", "x"),
				qualifier.Gt("age", int32(math.MaxInt32)),
			}},
			wantErr: "strictly greater",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := qualifier.Validate(tt.tree)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
