// Package index maintains the client-side catalog of server secondary
// indexes: immutable lookup snapshots plus a background refresher that keeps
// them in sync with the store.
package index

import (
	"strings"

	"github.com/fieldkv/fieldkv-go/ctxpath"
)

// CollectionKind says which part of a collection-typed bin an index or
// predicate targets.
type CollectionKind uint8

const (
	CollectionNone CollectionKind = iota
	CollectionList
	CollectionMapKeys
	CollectionMapValues
)

// String implements the fmt.Stringer interface.
func (k CollectionKind) String() string {
	switch k {
	case CollectionNone:
		return "none"
	case CollectionList:
		return "list"
	case CollectionMapKeys:
		return "mapkeys"
	case CollectionMapValues:
		return "mapvalues"
	}
	return "unknown"
}

// ValueType is the declared type of the indexed values.
type ValueType string

const (
	ValueTypeNumeric ValueType = "numeric"
	ValueTypeString  ValueType = "string"
	ValueTypeBlob    ValueType = "blob"
)

// Definition describes one server secondary index. Two distinct indexes may
// exist on the same bin with different context paths, so lookup identity is
// (set, bin, collection kind, context path) rather than Name.
type Definition struct {
	Name       string
	Namespace  string
	Set        string
	Bin        string
	ValueType  ValueType
	Collection CollectionKind
	Path       ctxpath.Path
}

// Key renders the lookup identity of the definition.
func (d Definition) Key() string {
	return identityKey(d.Set, d.Bin, d.Collection, d.Path)
}

func identityKey(set, bin string, kind CollectionKind, path ctxpath.Path) string {
	var sb strings.Builder
	sb.WriteString(set)
	sb.WriteByte('|')
	sb.WriteString(bin)
	sb.WriteByte('|')
	sb.WriteString(kind.String())
	sb.WriteByte('|')
	sb.WriteString(path.String())
	return sb.String()
}
