package qualifier

import (
	"fmt"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/model"
)

// Matches evaluates the tree against a record's bins. A leaf scoped to a
// collection kind matches if any element of the targeted part of the
// collection satisfies the comparison.
func Matches(q Qualifier, r *model.Record) (bool, error) {
	switch n := q.(type) {
	case *Leaf:
		return matchLeaf(n, r), nil
	case *Compound:
		if n.Op != And && n.Op != Or {
			return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, n.Op)
		}
		for _, child := range n.Children {
			ok, err := Matches(child, r)
			if err != nil {
				return false, err
			}
			if n.Op == And && !ok {
				return false, nil
			}
			if n.Op == Or && ok {
				return true, nil
			}
		}
		return n.Op == And, nil
	}
	return false, fmt.Errorf("unknown qualifier type %T", q)
}

func matchLeaf(l *Leaf, r *model.Record) bool {
	if l.Identity {
		for _, want := range l.Values {
			if model.Equal(r.Key.Value, want) {
				return true
			}
		}
		return false
	}

	v, ok := r.Bin(l.Bin)
	if !ok {
		return false
	}
	if len(l.Path) > 0 {
		var err error
		v, err = ctxpath.Navigate(v, l.Path)
		if err != nil {
			// Navigation misses mean the record has no matching nested content.
			return false
		}
	}

	for _, candidate := range spread(v, l.Collection) {
		if compare(l.Op, candidate, l.Values) {
			return true
		}
	}
	return false
}

// spread expands a collection-typed value into the candidates the leaf's
// collection kind targets.
func spread(v any, kind index.CollectionKind) []any {
	switch kind {
	case index.CollectionList:
		if list, ok := v.([]any); ok {
			return list
		}
		return nil
	case index.CollectionMapKeys, index.CollectionMapValues:
		candidates := collectMap(v, kind == index.CollectionMapKeys)
		return candidates
	}
	return []any{v}
}

func collectMap(v any, keys bool) []any {
	var out []any
	appendEntry := func(k, mv any) {
		if keys {
			out = append(out, k)
		} else {
			out = append(out, mv)
		}
	}
	switch m := v.(type) {
	case map[string]any:
		for k, mv := range m {
			appendEntry(k, mv)
		}
	case map[any]any:
		for k, mv := range m {
			appendEntry(k, mv)
		}
	}
	return out
}

func compare(op CompareOp, candidate any, values []any) bool {
	switch op {
	case OpEq:
		return len(values) == 1 && model.Equal(candidate, values[0])
	case OpNotEq:
		return len(values) == 1 && !model.Equal(candidate, values[0])
	case OpIn:
		for _, want := range values {
			if model.Equal(candidate, want) {
				return true
			}
		}
		return false
	case OpGt, OpGtEq, OpLt, OpLtEq:
		if len(values) != 1 {
			return false
		}
		c, ok := model.Compare(candidate, values[0])
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return c > 0
		case OpGtEq:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpBetween:
		if len(values) != 2 {
			return false
		}
		lo, okLo := model.Compare(candidate, values[0])
		hi, okHi := model.Compare(candidate, values[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	}
	return false
}
