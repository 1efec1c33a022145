// Package qualifier implements the recursive predicate tree evaluated against
// records, plus the algebra the planner relies on: AND/OR composition,
// identity-predicate extraction and exclusion.
package qualifier

import (
	"fmt"
	"strings"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/index"
)

// LogicOp combines child qualifiers.
type LogicOp uint8

const (
	And LogicOp = iota + 1
	Or
)

// String implements the fmt.Stringer interface.
func (op LogicOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return fmt.Sprintf("logic-op(%d)", uint8(op))
}

// CompareOp is a leaf comparison operator.
type CompareOp uint8

const (
	OpEq CompareOp = iota + 1
	OpNotEq
	OpGt
	OpGtEq
	OpLt
	OpLtEq
	OpBetween
	OpIn
)

// String implements the fmt.Stringer interface.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpBetween:
		return "BETWEEN"
	case OpIn:
		return "IN"
	}
	return fmt.Sprintf("compare-op(%d)", uint8(op))
}

// Ordering reports whether the operator compares by order rather than by
// equality or membership.
func (op CompareOp) Ordering() bool {
	switch op {
	case OpGt, OpGtEq, OpLt, OpLtEq, OpBetween:
		return true
	}
	return false
}

// Qualifier is a predicate over record bins: either a Leaf comparison or a
// Compound AND/OR composition.
type Qualifier interface {
	fmt.Stringer
	isQualifier()
}

// Leaf is a single comparison against one bin, optionally scoped to a context
// path and a collection kind. An identity leaf predicates on the record's
// primary key instead of a bin.
type Leaf struct {
	Bin        string
	Path       ctxpath.Path
	Collection index.CollectionKind
	Op         CompareOp
	Values     []any
	Identity   bool
}

func (l *Leaf) isQualifier() {}

// String implements the fmt.Stringer interface.
func (l *Leaf) String() string {
	target := l.Bin
	if l.Identity {
		target = "__key"
	}
	if len(l.Path) > 0 {
		target += "." + l.Path.String()
	}
	vals := make([]string, len(l.Values))
	for i, v := range l.Values {
		vals[i] = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%s %s %s", target, l.Op, strings.Join(vals, ", "))
}

// WithPath scopes the leaf to a context path.
func (l *Leaf) WithPath(path ctxpath.Path) *Leaf {
	l.Path = path
	return l
}

// WithCollection scopes the leaf to part of a collection-typed bin.
func (l *Leaf) WithCollection(kind index.CollectionKind) *Leaf {
	l.Collection = kind
	return l
}

// Compound combines child qualifiers under one logical operator. Child order
// is significant for the planner's deterministic index selection.
type Compound struct {
	Op       LogicOp
	Children []Qualifier
}

func (c *Compound) isQualifier() {}

// String implements the fmt.Stringer interface.
func (c *Compound) String() string {
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, " "+c.Op.String()+" ") + ")"
}

// Eq creates an equality leaf.
func Eq(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpEq, Values: []any{value}}
}

// NotEq creates an inequality leaf.
func NotEq(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpNotEq, Values: []any{value}}
}

// Gt creates a strictly-greater-than leaf.
func Gt(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpGt, Values: []any{value}}
}

// GtEq creates a greater-or-equal leaf.
func GtEq(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpGtEq, Values: []any{value}}
}

// Lt creates a strictly-less-than leaf.
func Lt(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpLt, Values: []any{value}}
}

// LtEq creates a less-or-equal leaf.
func LtEq(bin string, value any) *Leaf {
	return &Leaf{Bin: bin, Op: OpLtEq, Values: []any{value}}
}

// Between creates an inclusive range leaf.
func Between(bin string, low, high any) *Leaf {
	return &Leaf{Bin: bin, Op: OpBetween, Values: []any{low, high}}
}

// In creates a membership leaf.
func In(bin string, values ...any) *Leaf {
	return &Leaf{Bin: bin, Op: OpIn, Values: values}
}

// ID creates an identity leaf over the record's primary key.
func ID(values ...any) *Leaf {
	return &Leaf{Op: OpIn, Values: values, Identity: true}
}

// Leaves returns every leaf in the tree in depth-first, left-to-right order.
func Leaves(q Qualifier) []*Leaf {
	var out []*Leaf
	walk(q, func(l *Leaf) {
		out = append(out, l)
	})
	return out
}

func walk(q Qualifier, fn func(*Leaf)) {
	switch n := q.(type) {
	case *Leaf:
		fn(n)
	case *Compound:
		for _, child := range n.Children {
			walk(child, fn)
		}
	}
}
