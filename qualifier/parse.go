package qualifier

import (
	"fmt"
	"strings"

	qlexpr "github.com/araddon/qlbridge/expr"
	"github.com/araddon/qlbridge/lex"

	"github.com/fieldkv/fieldkv-go/ctxpath"
)

// ParseFilter parses a filter expression such as
//
//	lastName == "Smith" AND age > 30
//
// into a qualifier tree. The special identifier _id predicates on the primary
// key; an identifier of the form bin.<context path> scopes a comparison to
// nested content, e.g. addresses.{work}.zipCode.
func ParseFilter(s string) (Qualifier, error) {
	node, err := qlexpr.ParseExpression(s)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", s, err)
	}
	return FromExpr(node)
}

// FromExpr converts a parsed qlbridge expression into a qualifier tree.
func FromExpr(node qlexpr.Node) (Qualifier, error) {
	switch n := node.(type) {
	case *qlexpr.BinaryNode:
		return fromBinary(n)
	case *qlexpr.BooleanNode:
		return fromLogic(n.Operator.T, n.Args)
	case *qlexpr.TriNode:
		return fromTri(n)
	}
	return nil, fmt.Errorf("unsupported filter expression node %T", node)
}

func fromBinary(n *qlexpr.BinaryNode) (Qualifier, error) {
	switch n.Operator.T {
	case lex.TokenLogicAnd, lex.TokenAnd:
		return fromLogic(lex.TokenLogicAnd, n.Args)
	case lex.TokenLogicOr, lex.TokenOr:
		return fromLogic(lex.TokenLogicOr, n.Args)
	}

	if len(n.Args) != 2 {
		return nil, fmt.Errorf("comparison %q must have two operands", n.Operator.V)
	}
	leaf, err := newLeafTarget(n.Args[0])
	if err != nil {
		return nil, err
	}

	switch n.Operator.T {
	case lex.TokenEqual, lex.TokenEqualEqual:
		leaf.Op = OpEq
	case lex.TokenNE:
		leaf.Op = OpNotEq
	case lex.TokenGT:
		leaf.Op = OpGt
	case lex.TokenGE:
		leaf.Op = OpGtEq
	case lex.TokenLT:
		leaf.Op = OpLt
	case lex.TokenLE:
		leaf.Op = OpLtEq
	case lex.TokenIN:
		leaf.Op = OpIn
	default:
		return nil, fmt.Errorf("unsupported filter operator %q", n.Operator.V)
	}

	values, err := literalValues(n.Args[1])
	if err != nil {
		return nil, err
	}
	leaf.Values = values
	return leaf, nil
}

func fromLogic(op lex.TokenType, args []qlexpr.Node) (Qualifier, error) {
	children := make([]Qualifier, 0, len(args))
	for _, arg := range args {
		child, err := FromExpr(arg)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	logic := And
	if op == lex.TokenLogicOr {
		logic = Or
	}
	return Combine(logic, children...)
}

func fromTri(n *qlexpr.TriNode) (Qualifier, error) {
	if n.Operator.T != lex.TokenBetween || len(n.Args) != 3 {
		return nil, fmt.Errorf("unsupported filter expression %q", n.Operator.V)
	}
	leaf, err := newLeafTarget(n.Args[0])
	if err != nil {
		return nil, err
	}
	low, err := literalValue(n.Args[1])
	if err != nil {
		return nil, err
	}
	high, err := literalValue(n.Args[2])
	if err != nil {
		return nil, err
	}
	leaf.Op = OpBetween
	leaf.Values = []any{low, high}
	return leaf, nil
}

// newLeafTarget maps an identifier node onto a leaf target: the bin name plus
// an optional context path after the first dot.
func newLeafTarget(node qlexpr.Node) (*Leaf, error) {
	ident, ok := node.(*qlexpr.IdentityNode)
	if !ok {
		return nil, fmt.Errorf("comparison target must be an identifier, got %T", node)
	}
	if ident.Text == "_id" {
		return &Leaf{Identity: true}, nil
	}

	bin, rest, hasPath := strings.Cut(ident.Text, ".")
	leaf := &Leaf{Bin: bin}
	if hasPath {
		path, err := ctxpath.Parse(rest)
		if err != nil {
			return nil, err
		}
		leaf.Path = path
	}
	return leaf, nil
}

func literalValues(node qlexpr.Node) ([]any, error) {
	if array, ok := node.(*qlexpr.ArrayNode); ok {
		out := make([]any, 0, len(array.Args))
		for _, arg := range array.Args {
			v, err := literalValue(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, err := literalValue(node)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func literalValue(node qlexpr.Node) (any, error) {
	switch n := node.(type) {
	case *qlexpr.StringNode:
		return n.Text, nil
	case *qlexpr.NumberNode:
		if n.IsInt {
			return n.Int64, nil
		}
		return n.Float64, nil
	case *qlexpr.IdentityNode:
		// Unquoted barewords lex as identifiers; treat them as strings.
		return n.Text, nil
	}
	return nil, fmt.Errorf("unsupported literal %T", node)
}
