package index

import (
	"fmt"
	"strings"

	"github.com/fieldkv/fieldkv-go/ctxpath"
)

// The administrative index listing is a ';'-separated sequence of entries,
// each a ':'-separated sequence of key=value fields:
//
//	ns=test:set=Person:indexname=idx_last:bin=lastName:type=string:indextype=none
//
// An optional context field carries the nested path in the same DSL that
// index declarations use, so a path declared client-side and one reported by
// the server round-trip to structurally equal values.

// ParseListing decodes a raw index listing into definitions. Any malformed
// entry fails the whole listing; a partially decoded listing is never
// returned.
func ParseListing(raw string) ([]Definition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	entries := strings.Split(strings.TrimSuffix(raw, ";"), ";")
	defs := make([]Definition, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		d, err := parseEntry(entry)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func parseEntry(entry string) (Definition, error) {
	var d Definition
	for _, field := range strings.Split(entry, ":") {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return Definition{}, fmt.Errorf("index listing entry %q: malformed field %q", entry, field)
		}

		switch name {
		case "ns", "namespace":
			d.Namespace = value
		case "set":
			d.Set = value
		case "indexname":
			d.Name = value
		case "bin", "bins":
			d.Bin = value
		case "type":
			d.ValueType = ValueType(strings.ToLower(value))
		case "indextype":
			kind, err := parseCollectionKind(value)
			if err != nil {
				return Definition{}, fmt.Errorf("index listing entry %q: %w", entry, err)
			}
			d.Collection = kind
		case "context":
			if value != "" && value != "null" {
				path, err := ctxpath.Parse(value)
				if err != nil {
					return Definition{}, fmt.Errorf("index listing entry %q: %w", entry, err)
				}
				d.Path = path
			}
		}
	}

	if d.Name == "" || d.Bin == "" {
		return Definition{}, fmt.Errorf("index listing entry %q: missing indexname or bin", entry)
	}
	return d, nil
}

func parseCollectionKind(s string) (CollectionKind, error) {
	switch strings.ToLower(s) {
	case "", "none", "default":
		return CollectionNone, nil
	case "list":
		return CollectionList, nil
	case "mapkeys":
		return CollectionMapKeys, nil
	case "mapvalues":
		return CollectionMapValues, nil
	}
	return CollectionNone, fmt.Errorf("unknown index type %q", s)
}

// FormatListing renders definitions back into the listing wire format. Used
// by embedded backends that serve the info command locally.
func FormatListing(defs []Definition) string {
	var sb strings.Builder
	for i, d := range defs {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "ns=%s:set=%s:indexname=%s:bin=%s:type=%s:indextype=%s",
			d.Namespace, d.Set, d.Name, d.Bin, d.ValueType, d.Collection)
		if len(d.Path) > 0 {
			fmt.Fprintf(&sb, ":context=%s", d.Path.String())
		}
	}
	return sb.String()
}
