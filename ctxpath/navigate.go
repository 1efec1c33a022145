package ctxpath

import (
	"fmt"
	"sort"

	"github.com/fieldkv/fieldkv-go/model"
)

// Navigate walks the given nested list/map value along the path and returns
// the value it lands on. Maps are treated as key-ordered for index steps and
// value-ordered for rank steps; lists are position-ordered for index steps and
// sort-ordered for rank steps.
func Navigate(v any, path Path) (any, error) {
	for _, e := range path {
		var err error
		v, err = step(v, e)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func step(v any, e Element) (any, error) {
	switch e.Kind {
	case ListIndex, ListRank, ListValue:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot apply %s to %T", e.Kind, v)
		}
		return stepList(list, e)
	case MapIndex, MapRank, MapKey, MapValue:
		m, err := asMap(v)
		if err != nil {
			return nil, fmt.Errorf("cannot apply %s to %T", e.Kind, v)
		}
		return stepMap(m, e)
	}
	return nil, fmt.Errorf("unknown context element %s", e.Kind)
}

func stepList(list []any, e Element) (any, error) {
	switch e.Kind {
	case ListIndex:
		i := e.Value.(int)
		if i < 0 || i >= len(list) {
			return nil, fmt.Errorf("list index %d out of range [0, %d)", i, len(list))
		}
		return list[i], nil
	case ListRank:
		r := e.Value.(int)
		if r < 0 || r >= len(list) {
			return nil, fmt.Errorf("list rank %d out of range [0, %d)", r, len(list))
		}
		ranked := make([]any, len(list))
		copy(ranked, list)
		sortValues(ranked)
		return ranked[r], nil
	default: // ListValue
		for _, item := range list {
			if model.Equal(item, e.Value) {
				return item, nil
			}
		}
		return nil, fmt.Errorf("list has no element equal to %v", e.Value)
	}
}

func stepMap(m map[any]any, e Element) (any, error) {
	switch e.Kind {
	case MapKey:
		v, ok := m[e.Value]
		if !ok {
			// String keys declared as integers in the DSL still resolve.
			for k, kv := range m {
				if model.Equal(k, e.Value) {
					return kv, nil
				}
			}
			return nil, fmt.Errorf("map has no key %v", e.Value)
		}
		return v, nil
	case MapIndex:
		i := e.Value.(int)
		keys := sortedKeys(m)
		if i < 0 || i >= len(keys) {
			return nil, fmt.Errorf("map index %d out of range [0, %d)", i, len(keys))
		}
		return m[keys[i]], nil
	case MapRank:
		r := e.Value.(int)
		values := make([]any, 0, len(m))
		for _, v := range m {
			values = append(values, v)
		}
		sortValues(values)
		if r < 0 || r >= len(values) {
			return nil, fmt.Errorf("map rank %d out of range [0, %d)", r, len(values))
		}
		return values[r], nil
	default: // MapValue
		for _, v := range m {
			if model.Equal(v, e.Value) {
				return v, nil
			}
		}
		return nil, fmt.Errorf("map has no value equal to %v", e.Value)
	}
}

func asMap(v any) (map[any]any, error) {
	switch m := v.(type) {
	case map[any]any:
		return m, nil
	case map[string]any:
		out := make(map[any]any, len(m))
		for k, mv := range m {
			out[k] = mv
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a map: %T", v)
}

func sortValues(values []any) {
	sort.SliceStable(values, func(i, j int) bool {
		c, ok := model.Compare(values[i], values[j])
		return ok && c < 0
	})
}

func sortedKeys(m map[any]any) []any {
	keys := make([]any, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortValues(keys)
	return keys
}
