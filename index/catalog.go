package index

import (
	"sync/atomic"

	"github.com/fieldkv/fieldkv-go/ctxpath"
)

type snapshot map[string]Definition

// Catalog is a concurrently readable snapshot of the secondary indexes known
// to exist on the server. Reads never lock: the whole snapshot is swapped
// behind an atomic pointer, so a reader racing a refresh sees either the old
// or the new mapping, never a mix.
type Catalog struct {
	snap atomic.Pointer[snapshot]
}

// NewCatalog creates a new empty Catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	empty := snapshot{}
	c.snap.Store(&empty)
	return c
}

// Lookup returns the index definition matching the given identity, if any.
// Context paths match only when structurally equal to the declared path.
func (c *Catalog) Lookup(set, bin string, kind CollectionKind, path ctxpath.Path) (Definition, bool) {
	d, ok := (*c.snap.Load())[identityKey(set, bin, kind, path)]
	return d, ok
}

// Snapshot returns the current mapping from identity key to definition. The
// returned map is shared and must not be mutated.
func (c *Catalog) Snapshot() map[string]Definition {
	return *c.snap.Load()
}

// Len returns the number of indexes in the current snapshot.
func (c *Catalog) Len() int {
	return len(*c.snap.Load())
}

// Replace installs a brand-new snapshot built from the given definitions,
// fully superseding the previous one in a single atomic swap. Later
// definitions win on identity collisions.
func (c *Catalog) Replace(defs []Definition) {
	next := make(snapshot, len(defs))
	for _, d := range defs {
		next[d.Key()] = d
	}
	c.snap.Store(&next)
}
