// Package ctxpath implements the dot/bracket DSL that describes navigation into
// nested list/map content within a single bin.
package ctxpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the closed set of context element kinds.
type Kind uint8

const (
	ListIndex Kind = iota + 1
	ListRank
	ListValue
	MapIndex
	MapRank
	MapKey
	MapValue
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case ListIndex:
		return "list-index"
	case ListRank:
		return "list-rank"
	case ListValue:
		return "list-value"
	case MapIndex:
		return "map-index"
	case MapRank:
		return "map-rank"
	case MapKey:
		return "map-key"
	case MapValue:
		return "map-value"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Element is a single navigation step into nested list/map content.
// Value holds an int for index/rank kinds and an int64 or string scalar for
// key/value kinds.
type Element struct {
	Kind  Kind
	Value any
}

// Equal reports whether two elements have the same kind and the same scalar.
func (e Element) Equal(o Element) bool {
	return e.Kind == o.Kind && e.Value == o.Value
}

// String renders the element back into its DSL form.
func (e Element) String() string {
	switch e.Kind {
	case ListIndex:
		return fmt.Sprintf("[%v]", e.Value)
	case ListRank:
		return fmt.Sprintf("[#%v]", e.Value)
	case ListValue:
		return fmt.Sprintf("[=%s]", renderScalar(e.Value))
	case MapIndex:
		return fmt.Sprintf("{%v}", e.Value)
	case MapRank:
		return fmt.Sprintf("{#%v}", e.Value)
	case MapValue:
		return fmt.Sprintf("{=%s}", renderScalar(e.Value))
	case MapKey:
		return renderScalar(e.Value)
	}
	return fmt.Sprintf("<%v>", e.Value)
}

// Path is an ordered, root-to-leaf sequence of elements.
type Path []Element

// Equal reports whether two paths have the same length and elementwise equal
// elements. A nil path only equals another nil path of length zero.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !p[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// String renders the path back into its DSL form such that Parse(p.String())
// yields a structurally equal path.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.String()
	}
	return strings.Join(parts, ".")
}

// renderScalar quotes string scalars that would otherwise be re-read as
// integers or as path structure, so that String/Parse round-trip. A scalar
// holding a single quote is delimited with double quotes instead.
func renderScalar(v any) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if !needsQuoting(s) {
		return s
	}
	if strings.Contains(s, "'") {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, ".{}[]=#") {
		return true
	}
	if first, last := s[0], s[len(s)-1]; first == '\'' || first == '"' || last == '\'' || last == '"' {
		return true
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
