package qualifier

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupportedOperator is returned when a compound carries an operator
// outside AND/OR.
var ErrUnsupportedOperator = errors.New("unsupported logical operator")

// ErrNoIdentity is returned when a tree that must predicate on the primary
// key has no identity leaf.
var ErrNoIdentity = errors.New("qualifier must contain an identity predicate")

// Combine constructs a compound from the given children. Only AND and OR are
// valid combinators.
func Combine(op LogicOp, children ...Qualifier) (Qualifier, error) {
	if op != And && op != Or {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
	return &Compound{Op: op, Children: children}, nil
}

// ExtractIdentity finds the single identity leaf in the tree and normalizes
// its operand to a flat list of key values. A byte-slice operand is one
// opaque key; any other slice or array operand expands element by element;
// any other operand is a single key.
func ExtractIdentity(q Qualifier) ([]any, error) {
	var found []*Leaf
	walk(q, func(l *Leaf) {
		if l.Identity {
			found = append(found, l)
		}
	})
	switch len(found) {
	case 0:
		return nil, ErrNoIdentity
	case 1:
	default:
		return nil, fmt.Errorf("qualifier contains %d identity predicates, want exactly one", len(found))
	}

	leaf := found[0]
	if len(leaf.Values) != 1 {
		out := make([]any, len(leaf.Values))
		copy(out, leaf.Values)
		return out, nil
	}
	return expandOperand(leaf.Values[0]), nil
}

func expandOperand(v any) []any {
	if _, ok := v.([]byte); ok {
		return []any{v}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// ExcludeIdentity rebuilds the tree with every identity leaf removed. A
// compound whose children all vanish vanishes itself; a bare identity root
// yields nil, meaning nothing is left to filter by.
func ExcludeIdentity(q Qualifier) (Qualifier, error) {
	switch n := q.(type) {
	case *Leaf:
		if n.Identity {
			return nil, nil
		}
		return n, nil
	case *Compound:
		if n.Op != And && n.Op != Or {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, n.Op)
		}
		kept := make([]Qualifier, 0, len(n.Children))
		for _, child := range n.Children {
			rebuilt, err := ExcludeIdentity(child)
			if err != nil {
				return nil, err
			}
			if rebuilt != nil {
				kept = append(kept, rebuilt)
			}
		}
		switch len(kept) {
		case 0:
			return nil, nil
		case 1:
			return kept[0], nil
		}
		return &Compound{Op: n.Op, Children: kept}, nil
	}
	return nil, fmt.Errorf("unknown qualifier type %T", q)
}
