package planner_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/planner"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

func catalogWith(defs ...index.Definition) *index.Catalog {
	c := index.NewCatalog()
	c.Replace(defs)
	return c
}

func TestPlanKeyLookup(t *testing.T) {
	catalog := index.NewCatalog()

	tests := []struct {
		name string
		tree qualifier.Qualifier
		want []any
	}{
		{
			name: "bare identity",
			tree: qualifier.ID(int64(5)),
			want: []any{int64(5)},
		},
		{
			name: "identity with slice operand",
			tree: qualifier.ID([]int64{1, 2}),
			want: []any{int64(1), int64(2)},
		},
		{
			name: "compound that reduces to identity",
			tree: &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
				qualifier.ID("k"),
			}},
			want: []any{"k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planner.Plan("Person", tt.tree, catalog, planner.Policy{})
			require.NoError(t, err)
			lookup, ok := plan.(planner.KeyLookup)
			require.True(t, ok, "got %T", plan)
			require.Equal(t, tt.want, lookup.Keys)
		})
	}
}

func TestPlanIndexedQuery(t *testing.T) {
	catalog := catalogWith(index.Definition{
		Name: "idx_last", Set: "Person", Bin: "lastName", ValueType: index.ValueTypeString,
	})

	tree := qualifier.Eq("lastName", "Smith")
	plan, err := planner.Plan("Person", tree, catalog, planner.Policy{})
	require.NoError(t, err)

	iq, ok := plan.(planner.IndexedQuery)
	require.True(t, ok, "got %T", plan)
	require.Equal(t, "idx_last", iq.Index.Name)
	require.Equal(t, tree, iq.Tree, "the whole tree rides along as residual filter")
}

// The index accelerates candidate selection only; the matched leaf must not
// be stripped from the residual tree.
func TestPlanIndexedQueryKeepsMatchedLeaf(t *testing.T) {
	catalog := catalogWith(index.Definition{Name: "idx_age", Set: "Person", Bin: "age"})

	tree := &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
		qualifier.Eq("age", int64(30)),
		qualifier.Eq("lastName", "Smith"),
	}}
	plan, err := planner.Plan("Person", tree, catalog, planner.Policy{})
	require.NoError(t, err)

	iq := plan.(planner.IndexedQuery)
	require.Len(t, qualifier.Leaves(iq.Tree), 2)
}

func TestPlanPicksFirstMatchInTraversalOrder(t *testing.T) {
	catalog := catalogWith(
		index.Definition{Name: "idx_age", Set: "Person", Bin: "age"},
		index.Definition{Name: "idx_last", Set: "Person", Bin: "lastName"},
	)

	tree := &qualifier.Compound{Op: qualifier.And, Children: []qualifier.Qualifier{
		&qualifier.Compound{Op: qualifier.Or, Children: []qualifier.Qualifier{
			qualifier.Eq("nickname", "x"),
			qualifier.Eq("lastName", "Smith"),
		}},
		qualifier.Eq("age", int64(30)),
	}}

	plan, err := planner.Plan("Person", tree, catalog, planner.Policy{})
	require.NoError(t, err)
	iq := plan.(planner.IndexedQuery)
	require.Equal(t, "idx_last", iq.Index.Name,
		"depth-first left-to-right traversal reaches lastName before age")
}

func TestPlanContextPathMustMatchExactly(t *testing.T) {
	declared, err := ctxpath.Parse("{=work}.zip")
	require.NoError(t, err)
	catalog := catalogWith(index.Definition{
		Name: "idx_zip", Set: "Person", Bin: "addresses", Path: declared,
	})

	queried, err := ctxpath.Parse("{=home}.zip")
	require.NoError(t, err)
	tree := qualifier.Eq("addresses", int64(10001)).WithPath(queried)

	_, err = planner.Plan("Person", tree, catalog, planner.Policy{ScansEnabled: false})
	var perr *planner.PlanError
	require.ErrorAs(t, err, &perr)

	matching, err := ctxpath.Parse("{=work}.zip")
	require.NoError(t, err)
	plan, err := planner.Plan("Person", qualifier.Eq("addresses", int64(1)).WithPath(matching), catalog, planner.Policy{})
	require.NoError(t, err)
	require.IsType(t, planner.IndexedQuery{}, plan)
}

func TestPlanScanFallback(t *testing.T) {
	catalog := index.NewCatalog()
	tree := qualifier.Eq("lastName", "Smith")

	plan, err := planner.Plan("Person", tree, catalog, planner.Policy{ScansEnabled: true, MaxRecords: 500})
	require.NoError(t, err)
	scan, ok := plan.(planner.Scan)
	require.True(t, ok, "got %T", plan)
	require.Equal(t, tree, scan.Tree)
	require.EqualValues(t, 500, scan.Limit)
}

func TestPlanScansDisabledFailsLoudly(t *testing.T) {
	catalog := index.NewCatalog()
	tree := qualifier.Eq("lastName", "Smith")

	_, err := planner.Plan("Person", tree, catalog, planner.Policy{ScansEnabled: false})
	require.Error(t, err)
	var perr *planner.PlanError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "lastName", perr.Bin)
	require.Contains(t, err.Error(), "full scans are disabled")
}

func TestPlanValidatesOperands(t *testing.T) {
	catalog := catalogWith(index.Definition{Name: "idx_age", Set: "Person", Bin: "age"})

	_, err := planner.Plan("Person", qualifier.Gt("age", int64(math.MaxInt64)), catalog, planner.Policy{ScansEnabled: true})
	var perr *planner.PlanError
	require.ErrorAs(t, err, &perr)

	_, err = planner.Plan("Person", qualifier.Lt("tags", map[string]any{"a": 1}), catalog, planner.Policy{ScansEnabled: true})
	require.ErrorAs(t, err, &perr)
}

func TestPlanEmptyTree(t *testing.T) {
	catalog := index.NewCatalog()

	plan, err := planner.Plan("Person", nil, catalog, planner.Policy{ScansEnabled: true, MaxRecords: 10})
	require.NoError(t, err)
	require.IsType(t, planner.Scan{}, plan)

	_, err = planner.Plan("Person", nil, catalog, planner.Policy{ScansEnabled: false})
	var perr *planner.PlanError
	require.ErrorAs(t, err, &perr)
}
