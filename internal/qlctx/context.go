// Package qlctx adapts records to the qlbridge evaluation context so filter
// expressions can run unchanged as residual filters.
package qlctx

import (
	"strings"
	"time"

	qlvalue "github.com/araddon/qlbridge/value"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/model"
)

// RecordContext exposes a record's bins as a qlbridge.ContextReader. The
// identifier _id resolves to the primary key; identifiers of the form
// bin.<context path> navigate into nested list/map content.
type RecordContext struct {
	rec *model.Record
}

// New creates a new RecordContext for the given record.
func New(rec *model.Record) *RecordContext {
	return &RecordContext{rec: rec}
}

// Get implements the qlbridge.ContextReader interface.
func (c *RecordContext) Get(key string) (qlvalue.Value, bool) {
	if key == "_id" {
		return qlvalue.NewValue(c.rec.Key.Value), true
	}

	bin, rest, hasPath := strings.Cut(key, ".")
	v, ok := c.rec.Bin(bin)
	if !ok {
		return qlvalue.NewNilValue(), false
	}
	if hasPath {
		path, err := ctxpath.Parse(rest)
		if err != nil {
			return qlvalue.NewErrorValue(err), false
		}
		v, err = ctxpath.Navigate(v, path)
		if err != nil {
			return qlvalue.NewNilValue(), false
		}
	}
	return qlvalue.NewValue(v), true
}

// Row implements the qlbridge.ContextReader interface.
func (c *RecordContext) Row() map[string]qlvalue.Value {
	row := make(map[string]qlvalue.Value, len(c.rec.Bins))
	for name, v := range c.rec.Bins {
		row[name] = qlvalue.NewValue(v)
	}
	return row
}

// Ts implements the qlbridge.ContextReader interface.
func (c *RecordContext) Ts() time.Time { return time.Time{} }
