package bucket

import (
	"errors"
	"fmt"

	"github.com/stratakv/strata/kv"
)

var (
	// ErrNoTable is returned when a map is created without a table name.
	ErrNoTable = errors.New("table name must not be empty")

	// ErrNoKeyBuilder is returned when a map is created without a key
	// builder.
	ErrNoKeyBuilder = errors.New("key builder must not be nil")
)

// Map stores one value per (bucket, base key) pair in a single bucketed
// table. Writing a sequence number overwrites whatever its bucket already
// held for that base key.
type Map struct {
	table string
	keys  *KeyBuilder
}

// NewMap creates a map over the named table.
func NewMap(table string, keys *KeyBuilder) (*Map, error) {
	if table == "" {
		return nil, ErrNoTable
	}
	if keys == nil {
		return nil, ErrNoKeyBuilder
	}
	return &Map{table: table, keys: keys}, nil
}

// Table returns the name of the bucketed table.
func (m *Map) Table() string { return m.table }

// Put stores value under the bucket seq falls into, creating the table on
// demand.
func (m *Map) Put(txn kv.WriteTxn, seq uint64, baseKey, value []byte) error {
	tbl, err := txn.CreateTable(m.table)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", m.table, err)
	}

	if err := tbl.Set(m.keys.Key(seq, baseKey), value); err != nil {
		return fmt.Errorf("failed to write bucket %d: %w", m.keys.Bucket(seq), err)
	}

	return nil
}

// Get reads the value stored under seq's bucket. A missing table reads as
// absent.
func (m *Map) Get(txn kv.ReadTxn, seq uint64, baseKey []byte) ([]byte, bool, error) {
	tbl, err := txn.OpenTable(m.table)
	if errors.Is(err, kv.ErrTableNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open table %q: %w", m.table, err)
	}

	v, ok, err := tbl.Get(m.keys.Key(seq, baseKey))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read bucket %d: %w", m.keys.Bucket(seq), err)
	}

	return v, ok, nil
}

// Iterate walks baseKey's values from start's bucket through end's bucket,
// both inclusive. start > end yields ErrInvalidRange before touching the
// store; a missing table yields an exhausted iterator.
func (m *Map) Iterate(txn kv.ReadTxn, baseKey []byte, start, end uint64) (*RangeIterator, error) {
	if start > end {
		return nil, ErrInvalidRange
	}

	tbl, err := txn.OpenTable(m.table)
	if errors.Is(err, kv.ErrTableNotFound) {
		return &RangeIterator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %q: %w", m.table, err)
	}

	return &RangeIterator{
		tbl:     tbl,
		keys:    m.keys,
		baseKey: baseKey,
		cur:     newCursors(m.keys.Bucket(start), m.keys.Bucket(end)),
	}, nil
}

// Multimap stores any number of values per (bucket, base key) pair in a
// single bucketed multimap table. Values within a bucket keep the base
// store's stable per-key order.
type Multimap struct {
	table string
	keys  *KeyBuilder
}

// NewMultimap creates a multimap over the named table.
func NewMultimap(table string, keys *KeyBuilder) (*Multimap, error) {
	if table == "" {
		return nil, ErrNoTable
	}
	if keys == nil {
		return nil, ErrNoKeyBuilder
	}
	return &Multimap{table: table, keys: keys}, nil
}

// Table returns the name of the bucketed multimap table.
func (m *Multimap) Table() string { return m.table }

// Add stores value under the bucket seq falls into, creating the table on
// demand. Adding a value twice is a no-op.
func (m *Multimap) Add(txn kv.WriteTxn, seq uint64, baseKey, value []byte) error {
	tbl, err := txn.CreateMultimap(m.table)
	if err != nil {
		return fmt.Errorf("failed to open multimap %q: %w", m.table, err)
	}

	if err := tbl.Put(m.keys.Key(seq, baseKey), value); err != nil {
		return fmt.Errorf("failed to write bucket %d: %w", m.keys.Bucket(seq), err)
	}

	return nil
}

// Remove deletes one value from the bucket seq falls into and reports
// whether it was present.
func (m *Multimap) Remove(txn kv.WriteTxn, seq uint64, baseKey, value []byte) (bool, error) {
	tbl, err := txn.CreateMultimap(m.table)
	if err != nil {
		return false, fmt.Errorf("failed to open multimap %q: %w", m.table, err)
	}

	existed, err := tbl.Remove(m.keys.Key(seq, baseKey), value)
	if err != nil {
		return false, fmt.Errorf("failed to remove from bucket %d: %w", m.keys.Bucket(seq), err)
	}

	return existed, nil
}

// Iterate walks baseKey's values from start's bucket through end's bucket,
// both inclusive. start > end yields ErrInvalidRange before touching the
// store; a missing table yields an exhausted iterator.
func (m *Multimap) Iterate(txn kv.ReadTxn, baseKey []byte, start, end uint64) (*MultimapRangeIterator, error) {
	if start > end {
		return nil, ErrInvalidRange
	}

	tbl, err := txn.OpenMultimap(m.table)
	if errors.Is(err, kv.ErrTableNotFound) {
		return &MultimapRangeIterator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open multimap %q: %w", m.table, err)
	}

	return &MultimapRangeIterator{
		tbl:     tbl,
		keys:    m.keys,
		baseKey: baseKey,
		cur:     newCursors(m.keys.Bucket(start), m.keys.Bucket(end)),
	}, nil
}
