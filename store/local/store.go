// Package local is an embedded, badger-backed record store. It implements
// the executor's record source and the refresher's info client, which makes
// it both a single-node backend and the harness the query stack is tested
// against: records with nested bins, secondary indexes with context paths,
// and the administrative index listing.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	msgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/fieldkv/fieldkv-go/ctxpath"
	"github.com/fieldkv/fieldkv-go/index"
	"github.com/fieldkv/fieldkv-go/model"
)

// envelope is the persisted form of a record. Integer keys round-trip as
// int64.
type envelope struct {
	Key  any            `msgpack:"k"`
	Bins map[string]any `msgpack:"b"`
}

// Store is an embedded record store over a badger database.
type Store struct {
	db        *badger.DB
	namespace string
	log       zerolog.Logger
	ords      *ordinalRegistry

	mu      sync.RWMutex
	indexes map[string]index.Definition
}

// Open creates a Store over the given database, loading any previously
// declared secondary indexes.
func Open(db *badger.DB, namespace string, opts ...Option) (*Store, error) {
	ords, err := newOrdinalRegistry(db)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		namespace: namespace,
		log:       zerolog.Nop(),
		ords:      ords,
		indexes:   make(map[string]index.Definition),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadIndexes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Close releases the store's resources. The badger database itself stays
// open; it is owned by the caller.
func (s *Store) Close() error {
	return s.ords.Close()
}

func (s *Store) loadIndexes() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("d|")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				defs, err := index.ParseListing(string(val))
				if err != nil {
					return fmt.Errorf("corrupt index definition: %w", err)
				}
				for _, d := range defs {
					s.indexes[d.Name] = d
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func recordKey(set string, key any) ([]byte, error) {
	kb, err := encodeValue(key)
	if err != nil {
		return nil, fmt.Errorf("unsupported record key %v: %w", key, err)
	}
	out := append([]byte("r|"), set...)
	out = append(out, '|')
	return append(out, kb...), nil
}

// Put writes a record and maintains the postings of every index declared on
// its set.
func (s *Store) Put(ctx context.Context, set string, key any, bins map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rk, err := recordKey(set, key)
	if err != nil {
		return err
	}
	defs := s.indexesOn(set)

	return s.db.Update(func(txn *badger.Txn) error {
		old, err := readEnvelope(txn, rk)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		ord, err := s.ords.resolve(txn, rk)
		if err != nil {
			return err
		}

		for _, def := range defs {
			var oldVals []any
			if old != nil {
				oldVals = indexedValues(def, old.Bins)
			}
			if err := updatePostings(txn, def, ord, oldVals, indexedValues(def, bins)); err != nil {
				return err
			}
		}

		data, err := msgpack.Marshal(envelope{Key: key, Bins: bins})
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return txn.Set(rk, data)
	})
}

// Get implements the executor.RecordSource interface.
func (s *Store) Get(ctx context.Context, set string, key any) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rk, err := recordKey(set, key)
	if err != nil {
		return nil, err
	}

	var rec *model.Record
	err = s.db.View(func(txn *badger.Txn) error {
		env, err := readEnvelope(txn, rk)
		if err != nil {
			return err
		}
		rec = s.toRecord(set, env)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%v", model.ErrRecordNotFound, set, key)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record and clears it from all postings of its set.
func (s *Store) Delete(ctx context.Context, set string, key any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rk, err := recordKey(set, key)
	if err != nil {
		return err
	}
	defs := s.indexesOn(set)

	return s.db.Update(func(txn *badger.Txn) error {
		old, err := readEnvelope(txn, rk)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ord, err := s.ords.resolve(txn, rk)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if err := updatePostings(txn, def, ord, indexedValues(def, old.Bins), nil); err != nil {
				return err
			}
		}
		return txn.Delete(rk)
	})
}

// Scan implements the executor.RecordSource interface.
func (s *Store) Scan(ctx context.Context, set string, fn func(*model.Record) error) error {
	prefix := append([]byte("r|"), set...)
	prefix = append(prefix, '|')

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var env envelope
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &env)
			})
			if err != nil {
				return err
			}
			if err := fn(s.toRecord(set, &env)); err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryIndex implements the executor.RecordSource interface. Candidates
// matching any of the given values are streamed in ordinal order.
func (s *Store) QueryIndex(ctx context.Context, set, indexName string, values []any, fn func(*model.Record) error) error {
	s.mu.RLock()
	def, ok := s.indexes[indexName]
	s.mu.RUnlock()
	if !ok || def.Set != set {
		return fmt.Errorf("no index %q on set %q", indexName, set)
	}

	return s.db.View(func(txn *badger.Txn) error {
		candidates := roaring.New()
		for _, v := range values {
			bm, err := readPostings(txn, def.Name, v)
			if err != nil {
				return err
			}
			if bm != nil {
				candidates.Or(bm)
			}
		}

		it := candidates.Iterator()
		for it.HasNext() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rk, err := recordKeyOf(txn, it.Next())
			if err != nil {
				return err
			}
			env, err := readEnvelope(txn, rk)
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Stale ordinal from a deleted record.
				continue
			}
			if err != nil {
				return err
			}
			if err := fn(s.toRecord(set, env)); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateIndex declares a secondary index and backfills its postings from the
// existing records of the set. An empty name gets a generated one. The new
// index appears in the listing once this returns.
func (s *Store) CreateIndex(ctx context.Context, def index.Definition) (index.Definition, error) {
	if def.Bin == "" || def.Set == "" {
		return index.Definition{}, errors.New("index definition needs a set and a bin")
	}
	if def.Name == "" {
		def.Name = "idx_" + uuid.NewString()[:8]
	}
	def.Namespace = s.namespace

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.indexes[def.Name]; exists {
		return index.Definition{}, fmt.Errorf("index %q already exists", def.Name)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(append([]byte("d|"), def.Name...), []byte(index.FormatListing([]index.Definition{def}))); err != nil {
			return err
		}
		return s.backfill(ctx, txn, def)
	})
	if err != nil {
		return index.Definition{}, err
	}

	s.indexes[def.Name] = def
	s.log.Info().Str("index", def.Name).Str("set", def.Set).Str("bin", def.Bin).
		Msg("secondary index created")
	return def, nil
}

func (s *Store) backfill(ctx context.Context, txn *badger.Txn, def index.Definition) error {
	prefix := append([]byte("r|"), def.Set...)
	prefix = append(prefix, '|')

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rk := it.Item().KeyCopy(nil)
		var env envelope
		err := it.Item().Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &env)
		})
		if err != nil {
			return err
		}
		ord, err := s.ords.resolve(txn, rk)
		if err != nil {
			return err
		}
		if err := updatePostings(txn, def, ord, nil, indexedValues(def, env.Bins)); err != nil {
			return err
		}
	}
	return nil
}

// DropIndex removes an index and its postings.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("no index %q", name)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(append([]byte("d|"), name...)); err != nil {
			return err
		}
		prefix := postingPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	delete(s.indexes, name)
	return nil
}

// IndexListing implements the index.InfoClient interface.
func (s *Store) IndexListing(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]index.Definition, 0, len(s.indexes))
	for _, d := range s.indexes {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return index.FormatListing(defs), nil
}

func (s *Store) indexesOn(set string) []index.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var defs []index.Definition
	for _, d := range s.indexes {
		if d.Set == set {
			defs = append(defs, d)
		}
	}
	return defs
}

func (s *Store) toRecord(set string, env *envelope) *model.Record {
	return &model.Record{
		Key:  model.Key{Namespace: s.namespace, Set: set, Value: env.Key},
		Bins: env.Bins,
	}
}

func readEnvelope(txn *badger.Txn, rk []byte) (*envelope, error) {
	item, err := txn.Get(rk)
	if err != nil {
		return nil, err
	}
	var env envelope
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &env)
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// indexedValues extracts the values a record contributes to an index:
// navigate the context path if any, then spread by collection kind.
func indexedValues(def index.Definition, bins map[string]any) []any {
	v, ok := bins[def.Bin]
	if !ok {
		return nil
	}
	if len(def.Path) > 0 {
		var err error
		v, err = ctxpath.Navigate(v, def.Path)
		if err != nil {
			return nil
		}
	}

	switch def.Collection {
	case index.CollectionList:
		list, _ := v.([]any)
		return list
	case index.CollectionMapKeys, index.CollectionMapValues:
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		out := make([]any, 0, len(m))
		for k, mv := range m {
			if def.Collection == index.CollectionMapKeys {
				out = append(out, k)
			} else {
				out = append(out, mv)
			}
		}
		return out
	}
	return []any{v}
}

func postingPrefix(name string) []byte {
	out := append([]byte("i|"), name...)
	return append(out, '|')
}

func postingKey(name string, value any) ([]byte, error) {
	vb, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return append(postingPrefix(name), vb...), nil
}

func readPostings(txn *badger.Txn, name string, value any) (*roaring.Bitmap, error) {
	pk, err := postingKey(name, value)
	if err != nil {
		// Non-indexable probe values simply have no postings.
		return nil, nil
	}
	item, err := txn.Get(pk)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	err = item.Value(func(val []byte) error {
		return bm.UnmarshalBinary(val)
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// updatePostings moves an ordinal between the posting bitmaps of its old and
// new indexed values.
func updatePostings(txn *badger.Txn, def index.Definition, ord uint32, oldVals, newVals []any) error {
	for _, v := range oldVals {
		if containsValue(newVals, v) {
			continue
		}
		if err := mutatePostings(txn, def.Name, v, func(bm *roaring.Bitmap) {
			bm.Remove(ord)
		}); err != nil {
			return err
		}
	}
	for _, v := range newVals {
		if containsValue(oldVals, v) {
			continue
		}
		if err := mutatePostings(txn, def.Name, v, func(bm *roaring.Bitmap) {
			bm.Add(ord)
		}); err != nil {
			return err
		}
	}
	return nil
}

func mutatePostings(txn *badger.Txn, name string, value any, fn func(*roaring.Bitmap)) error {
	pk, err := postingKey(name, value)
	if err != nil {
		// Values that cannot be lex-encoded are silently not indexed.
		return nil
	}

	bm := roaring.New()
	item, err := txn.Get(pk)
	if err == nil {
		err = item.Value(func(val []byte) error {
			return bm.UnmarshalBinary(val)
		})
		if err != nil {
			return err
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	fn(bm)
	if bm.IsEmpty() {
		return txn.Delete(pk)
	}
	data, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	return txn.Set(pk, data)
}

func containsValue(values []any, v any) bool {
	vb, err := encodeValue(v)
	if err != nil {
		return false
	}
	for _, other := range values {
		ob, err := encodeValue(other)
		if err == nil && bytes.Equal(vb, ob) {
			return true
		}
	}
	return false
}
