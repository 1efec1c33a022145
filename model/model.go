// Package model holds the record model shared by the planner, the executor
// and the store backends.
package model

import "fmt"

// Key identifies a record within a namespace and set.
type Key struct {
	Namespace string
	Set       string
	Value     any
}

// String implements the fmt.Stringer interface.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%v", k.Namespace, k.Set, k.Value)
}

// Record is a stored row: a primary key plus named bins. Bin values are
// scalars or nested []any / map[string]any structures.
type Record struct {
	Key  Key
	Bins map[string]any
}

// Bin returns the named bin value and whether it is present.
func (r *Record) Bin(name string) (any, bool) {
	v, ok := r.Bins[name]
	return v, ok
}
