// Package planner decides the cheapest correct execution strategy for a
// qualifier tree: a primary-key lookup, a secondary-index-backed query, or a
// full scan with residual filtering. It never degrades to a scan when scans
// are administratively disabled; that case fails loudly instead.
package planner

import (
	"fmt"

	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/qualifier"
)

// Policy carries the administrative settings planning depends on.
type Policy struct {
	// ScansEnabled permits falling back to a full scan when no index matches.
	ScansEnabled bool
	// MaxRecords bounds scan plans; non-positive means unbounded.
	MaxRecords int64
}

// QueryPlan is the planning outcome handed to an execution collaborator.
type QueryPlan interface {
	isPlan()
}

// KeyLookup reads records directly by primary key, bypassing both indexes
// and scanning.
type KeyLookup struct {
	Keys []any
}

func (KeyLookup) isPlan() {}

// IndexedQuery narrows candidates through one secondary index. Tree is the
// entire original qualifier, matched leaf included: the index only
// accelerates candidate selection and the full predicate is still evaluated
// per record.
type IndexedQuery struct {
	Tree  qualifier.Qualifier
	Index index.Definition
}

func (IndexedQuery) isPlan() {}

// Scan evaluates the tree over every record of the set, up to Limit records
// of output; a non-positive Limit is unbounded.
type Scan struct {
	Tree  qualifier.Qualifier
	Limit int64
}

func (Scan) isPlan() {}

// PlanError reports why no plan could be produced.
type PlanError struct {
	Bin    string
	Path   string
	Reason string
	cause  error
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	msg := "cannot plan query"
	if e.Bin != "" {
		msg += fmt.Sprintf(" on bin %q", e.Bin)
		if e.Path != "" {
			msg += fmt.Sprintf(" with context %q", e.Path)
		}
	}
	return msg + ": " + e.Reason
}

// Unwrap returns the underlying cause, if any.
func (e *PlanError) Unwrap() error { return e.cause }

// Plan chooses the execution strategy for the tree against the given set.
//
// An identity-only tree becomes a KeyLookup. Otherwise every non-identity
// leaf is probed against the catalog; the first match in depth-first,
// left-to-right traversal order wins and yields an IndexedQuery carrying the
// whole tree as residual filter. With no match, the tree becomes a Scan when
// scans are enabled and a PlanError when they are not.
func Plan(set string, tree qualifier.Qualifier, catalog *index.Catalog, policy Policy) (QueryPlan, error) {
	if tree == nil {
		if !policy.ScansEnabled {
			return nil, &PlanError{Reason: "empty qualifier requires a full scan; full scans are disabled"}
		}
		return Scan{Limit: policy.MaxRecords}, nil
	}

	if err := qualifier.Validate(tree); err != nil {
		return nil, &PlanError{Reason: err.Error(), cause: err}
	}

	leaves := qualifier.Leaves(tree)
	if containsIdentity(leaves) {
		residual, err := qualifier.ExcludeIdentity(tree)
		if err != nil {
			return nil, &PlanError{Reason: err.Error(), cause: err}
		}
		if residual == nil {
			keys, err := qualifier.ExtractIdentity(tree)
			if err != nil {
				return nil, &PlanError{Reason: err.Error(), cause: err}
			}
			return KeyLookup{Keys: keys}, nil
		}
	}

	for _, leaf := range leaves {
		if leaf.Identity {
			continue
		}
		if def, ok := catalog.Lookup(set, leaf.Bin, leaf.Collection, leaf.Path); ok {
			return IndexedQuery{Tree: tree, Index: def}, nil
		}
	}

	if !policy.ScansEnabled {
		bin, path := firstTarget(leaves)
		return nil, &PlanError{
			Bin:    bin,
			Path:   path,
			Reason: "query requires a secondary index; none found; full scans are disabled",
		}
	}
	return Scan{Tree: tree, Limit: policy.MaxRecords}, nil
}

func containsIdentity(leaves []*qualifier.Leaf) bool {
	for _, leaf := range leaves {
		if leaf.Identity {
			return true
		}
	}
	return false
}

func firstTarget(leaves []*qualifier.Leaf) (bin, path string) {
	for _, leaf := range leaves {
		if leaf.Identity {
			continue
		}
		return leaf.Bin, leaf.Path.String()
	}
	return "", ""
}
