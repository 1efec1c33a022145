package local

import (
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/exp/constraints"
)

// ordinalRegistry assigns each record a small stable ordinal so postings can
// be kept as bitmaps. Forward entries map a record key to its ordinal and
// reverse entries map the ordinal back to the record entry key.
type ordinalRegistry struct {
	seq *badger.Sequence
}

func newOrdinalRegistry(db *badger.DB) (*ordinalRegistry, error) {
	seq, err := db.GetSequence([]byte("s|ordinals"), 128)
	if err != nil {
		return nil, fmt.Errorf("failed to open ordinal sequence: %w", err)
	}
	return &ordinalRegistry{seq: seq}, nil
}

func (o *ordinalRegistry) Close() error {
	return o.seq.Release()
}

// resolve returns the ordinal for the given record entry key, assigning and
// persisting a fresh one on first sight.
func (o *ordinalRegistry) resolve(txn *badger.Txn, recordKey []byte) (uint32, error) {
	forward := append([]byte("n|"), recordKey...)
	item, err := txn.Get(forward)
	if err == nil {
		var ord uint32
		err = item.Value(func(val []byte) error {
			if len(val) != 4 {
				return errors.New("corrupt ordinal entry")
			}
			ord = binary.BigEndian.Uint32(val)
			return nil
		})
		return ord, err
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}

	ord, err := nextID[uint32](o.seq)
	if err != nil {
		return 0, err
	}
	if err := txn.Set(forward, binary.BigEndian.AppendUint32(nil, ord)); err != nil {
		return 0, err
	}
	reverse := append([]byte("o|"), binary.BigEndian.AppendUint32(nil, ord)...)
	if err := txn.Set(reverse, recordKey); err != nil {
		return 0, err
	}
	return ord, nil
}

// recordKeyOf returns the record entry key behind an ordinal.
func recordKeyOf(txn *badger.Txn, ord uint32) ([]byte, error) {
	reverse := append([]byte("o|"), binary.BigEndian.AppendUint32(nil, ord)...)
	item, err := txn.Get(reverse)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// nextID draws the next id from a badger sequence. Sequences start from 0,
// so ids are shifted up by one to keep zero free as a sentinel.
func nextID[T constraints.Unsigned](seq *badger.Sequence) (T, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to generate id: %w", err)
	}
	return T(id + 1), nil
}
