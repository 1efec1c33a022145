// Package executor runs query plans against a record source: primary-key
// batch reads, index-backed queries with full residual filtering, and bounded
// scans.
package executor

import (
	"context"
	"errors"
	"fmt"

	qlexpr "github.com/araddon/qlbridge/expr"
	qlvm "github.com/araddon/qlbridge/vm"
	"github.com/rs/zerolog"

	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/internal/qlctx"
	"github.com/fieldkv/fieldkv-go/model"
	"github.com/fieldkv/fieldkv-go/planner"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

// RecordSource is the store access the executor delegates to. Implementations
// perform the actual record reads; the executor owns plan dispatch, residual
// filtering, deduplication and limits.
type RecordSource interface {
	// Get reads one record by primary key, returning
	// model.ErrRecordNotFound when it does not exist.
	Get(ctx context.Context, set string, key any) (*model.Record, error)
	// Scan streams every record of the set to fn until fn errors or the set
	// is exhausted.
	Scan(ctx context.Context, set string, fn func(*model.Record) error) error
	// QueryIndex streams candidate records matching any of the given values
	// through the named secondary index.
	QueryIndex(ctx context.Context, set, indexName string, values []any, fn func(*model.Record) error) error
}

// errStop aborts source iteration once a limit is reached.
var errStop = errors.New("stop iteration")

// Executor plans and executes qualifier trees against a record source.
type Executor struct {
	source  RecordSource
	catalog *index.Catalog
	policy  planner.Policy
	log     zerolog.Logger
}

// New creates a new Executor.
func New(source RecordSource, catalog *index.Catalog, policy planner.Policy, opts ...Option) *Executor {
	e := &Executor{
		source:  source,
		catalog: catalog,
		policy:  policy,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// Run plans the tree against the given set and executes the resulting plan.
func (e *Executor) Run(ctx context.Context, set string, tree qualifier.Qualifier) ([]*model.Record, error) {
	plan, err := planner.Plan(set, tree, e.catalog, e.policy)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, set, plan)
}

// Query parses a filter expression, plans it, and executes it with the
// original expression as the residual filter. Index selection works off the
// converted tree while filtering runs the expression itself, so operators the
// tree cannot express still filter exactly.
func (e *Executor) Query(ctx context.Context, set, filter string) ([]*model.Record, error) {
	node, err := qlexpr.ParseExpression(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", filter, err)
	}
	tree, err := qualifier.FromExpr(node)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Plan(set, tree, e.catalog, e.policy)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, set, plan, func(r *model.Record) (bool, error) {
		ok, _ := qlvm.MatchesExpr(qlctx.New(r), node)
		return ok, nil
	})
}

// Execute runs an already-planned query, filtering residuals with the plan's
// own qualifier tree.
func (e *Executor) Execute(ctx context.Context, set string, plan planner.QueryPlan) ([]*model.Record, error) {
	return e.execute(ctx, set, plan, nil)
}

func (e *Executor) execute(
	ctx context.Context,
	set string,
	plan planner.QueryPlan,
	match func(*model.Record) (bool, error),
) ([]*model.Record, error) {
	switch p := plan.(type) {
	case planner.KeyLookup:
		return e.keyLookup(ctx, set, p)
	case planner.IndexedQuery:
		if match == nil {
			match = treeMatcher(p.Tree)
		}
		return e.indexedQuery(ctx, set, p, match)
	case planner.Scan:
		if match == nil {
			match = treeMatcher(p.Tree)
		}
		return e.scan(ctx, set, p, match)
	}
	return nil, fmt.Errorf("unknown query plan %T", plan)
}

func treeMatcher(tree qualifier.Qualifier) func(*model.Record) (bool, error) {
	if tree == nil {
		return func(*model.Record) (bool, error) { return true, nil }
	}
	return func(r *model.Record) (bool, error) {
		return qualifier.Matches(tree, r)
	}
}

// keyLookup reads each key in order, skipping keys with no record.
func (e *Executor) keyLookup(ctx context.Context, set string, p planner.KeyLookup) ([]*model.Record, error) {
	out := make([]*model.Record, 0, len(p.Keys))
	for _, key := range p.Keys {
		rec, err := e.source.Get(ctx, set, key)
		if errors.Is(err, model.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (e *Executor) indexedQuery(
	ctx context.Context,
	set string,
	p planner.IndexedQuery,
	match func(*model.Record) (bool, error),
) ([]*model.Record, error) {
	values := matchedLeafValues(p.Tree, p.Index)
	if len(values) == 0 {
		// The matched leaf carries a non-equality operator the source cannot
		// seed candidates from, leaving a scan as the only strategy. That
		// still counts as a scan for policy purposes.
		if !e.policy.ScansEnabled {
			return nil, &planner.PlanError{
				Bin:    p.Index.Bin,
				Path:   p.Index.Path.String(),
				Reason: "matched index cannot seed candidates for this operator; full scans are disabled",
			}
		}
		e.log.Debug().Str("index", p.Index.Name).
			Msg("matched leaf not usable for candidate selection, scanning")
		return e.scan(ctx, set, planner.Scan{Tree: p.Tree, Limit: e.policy.MaxRecords}, match)
	}

	var out []*model.Record
	seen := make(map[string]struct{})
	err := e.source.QueryIndex(ctx, set, p.Index.Name, values, func(r *model.Record) error {
		if _, dup := seen[r.Key.String()]; dup {
			return nil
		}
		seen[r.Key.String()] = struct{}{}

		ok, err := match(r)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchedLeafValues finds the leaf the planner matched against the index and
// returns the values the source can seed candidate selection from. Only
// equality and membership leaves seed candidates.
func matchedLeafValues(tree qualifier.Qualifier, def index.Definition) []any {
	for _, leaf := range qualifier.Leaves(tree) {
		if leaf.Identity || leaf.Bin != def.Bin {
			continue
		}
		if leaf.Collection != def.Collection || !leaf.Path.Equal(def.Path) {
			continue
		}
		if leaf.Op == qualifier.OpEq || leaf.Op == qualifier.OpIn {
			return leaf.Values
		}
		return nil
	}
	return nil
}

func (e *Executor) scan(
	ctx context.Context,
	set string,
	p planner.Scan,
	match func(*model.Record) (bool, error),
) ([]*model.Record, error) {
	var out []*model.Record
	err := e.source.Scan(ctx, set, func(r *model.Record) error {
		ok, err := match(r)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		out = append(out, r)
		if p.Limit > 0 && int64(len(out)) >= p.Limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}
