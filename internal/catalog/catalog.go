// Package catalog carries the table plumbing shared by the kv drivers: a
// catalog of named tables kept inside the store's own key space, and the
// row encodings that namespace each table's data.
//
// Layout, all keys in one flat ordered byte space:
//
//	[0x00]                  id counter (4-byte BE next table id)
//	[0x00][name]            catalog row: [4-byte BE id][1-byte kind]
//	[0x01][4-byte BE id]... data rows of table id
//
// Plain tables append the user key to the data prefix. Multimap tables
// append [4-byte BE key len][key][value] with an empty row value, so the
// values of one key form one contiguous, byte-ordered run.
package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/stratakv/strata/kv"
)

const (
	tagMeta byte = 0x00
	tagData byte = 0x01

	idSize     = 4
	prefixSize = 1 + idSize

	// MaxNameLen bounds table names; longer names are rejected with
	// kv.ErrInvalidName.
	MaxNameLen = 1 << 10
)

// Flat is the minimal primitive a driver transaction exposes: point ops and
// forward scans over one ordered byte space. Read-only transactions return
// kv.ErrReadOnly from Set and Delete.
type Flat interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	// Scan iterates keys with start <= key < end ascending. A nil end means
	// no upper bound.
	Scan(start, end []byte) kv.Iterator
}

// Entry is one catalog row.
type Entry struct {
	ID   uint32
	Kind kv.Kind
}

func (e Entry) dataPrefix() []byte {
	p := make([]byte, prefixSize)
	p[0] = tagData
	binary.BigEndian.PutUint32(p[1:], e.ID)
	return p
}

func validateName(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("table name %q: %w", name, kv.ErrInvalidName)
	}
	return nil
}

func metaKey(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = tagMeta
	copy(k[1:], name)
	return k
}

// prefixSuccessor returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists (all bytes 0xFF).
func prefixSuccessor(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xFF {
			succ := make([]byte, i+1)
			copy(succ, prefix[:i+1])
			succ[i]++
			return succ
		}
	}
	return nil
}

// TxnView implements the table-opening half of the kv transaction
// interfaces over a Flat. Drivers embed it in their transaction types and
// add Commit/Discard.
type TxnView struct {
	flat Flat
}

// NewTxnView wraps a driver transaction primitive.
func NewTxnView(f Flat) TxnView {
	return TxnView{flat: f}
}

func (t TxnView) lookup(name string) (Entry, bool, error) {
	if err := validateName(name); err != nil {
		return Entry{}, false, err
	}
	raw, ok, err := t.flat.Get(metaKey(name))
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup table %q: %w", name, err)
	}
	if !ok {
		return Entry{}, false, nil
	}
	if len(raw) != idSize+1 {
		return Entry{}, false, fmt.Errorf("lookup table %q: corrupt catalog row", name)
	}
	return Entry{
		ID:   binary.BigEndian.Uint32(raw[:idSize]),
		Kind: kv.Kind(raw[idSize]),
	}, true, nil
}

func (t TxnView) open(name string, kind kv.Kind) (Entry, error) {
	e, ok, err := t.lookup(name)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("table %q: %w", name, kv.ErrTableNotFound)
	}
	if e.Kind != kind {
		return Entry{}, fmt.Errorf("table %q is a %s: %w", name, e.Kind, kv.ErrTableKind)
	}
	return e, nil
}

func (t TxnView) ensure(name string, kind kv.Kind) (Entry, error) {
	e, ok, err := t.lookup(name)
	if err != nil {
		return Entry{}, err
	}
	if ok {
		if e.Kind != kind {
			return Entry{}, fmt.Errorf("table %q is a %s: %w", name, e.Kind, kv.ErrTableKind)
		}
		return e, nil
	}

	id, err := t.nextID()
	if err != nil {
		return Entry{}, fmt.Errorf("create table %q: %w", name, err)
	}
	row := make([]byte, idSize+1)
	binary.BigEndian.PutUint32(row[:idSize], id)
	row[idSize] = byte(kind)
	if err := t.flat.Set(metaKey(name), row); err != nil {
		return Entry{}, fmt.Errorf("create table %q: %w", name, err)
	}
	return Entry{ID: id, Kind: kind}, nil
}

func (t TxnView) nextID() (uint32, error) {
	counter := []byte{tagMeta}
	raw, ok, err := t.flat.Get(counter)
	if err != nil {
		return 0, err
	}
	id := uint32(1)
	if ok {
		if len(raw) != idSize {
			return 0, fmt.Errorf("corrupt table id counter")
		}
		id = binary.BigEndian.Uint32(raw)
	}
	next := make([]byte, idSize)
	binary.BigEndian.PutUint32(next, id+1)
	if err := t.flat.Set(counter, next); err != nil {
		return 0, err
	}
	return id, nil
}

func (t TxnView) remove(name string, kind kv.Kind) (bool, error) {
	e, ok, err := t.lookup(name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if e.Kind != kind {
		return false, fmt.Errorf("table %q is a %s: %w", name, e.Kind, kv.ErrTableKind)
	}

	// Collect row keys first: mutating under an open scan is not part of
	// the Flat contract.
	prefix := e.dataPrefix()
	var rows [][]byte
	it := t.flat.Scan(prefix, prefixSuccessor(prefix))
	for it.Next() {
		rows = append(rows, append([]byte(nil), it.Key()...))
	}
	if err := it.Err(); err != nil {
		it.Close()
		return false, fmt.Errorf("delete table %q: %w", name, err)
	}
	if err := it.Close(); err != nil {
		return false, fmt.Errorf("delete table %q: %w", name, err)
	}
	for _, row := range rows {
		if err := t.flat.Delete(row); err != nil {
			return false, fmt.Errorf("delete table %q: %w", name, err)
		}
	}
	if err := t.flat.Delete(metaKey(name)); err != nil {
		return false, fmt.Errorf("delete table %q: %w", name, err)
	}
	return true, nil
}

// OpenTable opens an existing plain table.
func (t TxnView) OpenTable(name string) (kv.Table, error) {
	e, err := t.open(name, kv.KindTable)
	if err != nil {
		return nil, err
	}
	return &plainTable{flat: t.flat, prefix: e.dataPrefix()}, nil
}

// OpenMultimap opens an existing multimap table.
func (t TxnView) OpenMultimap(name string) (kv.MultimapTable, error) {
	e, err := t.open(name, kv.KindMultimap)
	if err != nil {
		return nil, err
	}
	return &multimapTable{flat: t.flat, prefix: e.dataPrefix()}, nil
}

// CreateTable opens a plain table, creating it if needed.
func (t TxnView) CreateTable(name string) (kv.WriteTable, error) {
	e, err := t.ensure(name, kv.KindTable)
	if err != nil {
		return nil, err
	}
	return &plainTable{flat: t.flat, prefix: e.dataPrefix()}, nil
}

// CreateMultimap opens a multimap table, creating it if needed.
func (t TxnView) CreateMultimap(name string) (kv.WriteMultimap, error) {
	e, err := t.ensure(name, kv.KindMultimap)
	if err != nil {
		return nil, err
	}
	return &multimapTable{flat: t.flat, prefix: e.dataPrefix()}, nil
}

// DeleteTable removes a plain table and its rows.
func (t TxnView) DeleteTable(name string) (bool, error) {
	return t.remove(name, kv.KindTable)
}

// DeleteMultimap removes a multimap table and its rows.
func (t TxnView) DeleteMultimap(name string) (bool, error) {
	return t.remove(name, kv.KindMultimap)
}

// ListTables returns all catalog entries sorted by name.
func (t TxnView) ListTables() ([]kv.TableInfo, error) {
	var infos []kv.TableInfo
	start := []byte{tagMeta, 0x00}
	it := t.flat.Scan(start, []byte{tagMeta + 1})
	defer it.Close()
	for it.Next() {
		raw := it.Value()
		if len(raw) != idSize+1 {
			return nil, fmt.Errorf("list tables: corrupt catalog row for %q", it.Key()[1:])
		}
		infos = append(infos, kv.TableInfo{
			Name: string(it.Key()[1:]),
			Kind: kv.Kind(raw[idSize]),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return infos, nil
}

type plainTable struct {
	flat   Flat
	prefix []byte
}

func (p *plainTable) rowKey(key []byte) []byte {
	row := make([]byte, 0, len(p.prefix)+len(key))
	row = append(row, p.prefix...)
	return append(row, key...)
}

func (p *plainTable) Get(key []byte) ([]byte, bool, error) {
	return p.flat.Get(p.rowKey(key))
}

func (p *plainTable) Set(key, value []byte) error {
	return p.flat.Set(p.rowKey(key), value)
}

func (p *plainTable) Delete(key []byte) (bool, error) {
	row := p.rowKey(key)
	_, ok, err := p.flat.Get(row)
	if err != nil || !ok {
		return false, err
	}
	if err := p.flat.Delete(row); err != nil {
		return false, err
	}
	return true, nil
}

func (p *plainTable) Range(start, end []byte) kv.Iterator {
	lo := p.rowKey(start)
	var hi []byte
	if end != nil {
		hi = p.rowKey(end)
	} else {
		hi = prefixSuccessor(p.prefix)
	}
	return &stripIterator{inner: p.flat.Scan(lo, hi), strip: len(p.prefix)}
}

// stripIterator drops the table prefix from yielded keys.
type stripIterator struct {
	inner kv.Iterator
	strip int
}

func (s *stripIterator) Next() bool    { return s.inner.Next() }
func (s *stripIterator) Key() []byte   { return s.inner.Key()[s.strip:] }
func (s *stripIterator) Value() []byte { return s.inner.Value() }
func (s *stripIterator) Err() error    { return s.inner.Err() }
func (s *stripIterator) Close() error  { return s.inner.Close() }

type multimapTable struct {
	flat   Flat
	prefix []byte
}

func (m *multimapTable) keyPrefix(key []byte) []byte {
	p := make([]byte, 0, len(m.prefix)+4+len(key))
	p = append(p, m.prefix...)
	p = binary.BigEndian.AppendUint32(p, uint32(len(key)))
	return append(p, key...)
}

func (m *multimapTable) pairKey(key, value []byte) []byte {
	p := m.keyPrefix(key)
	return append(p, value...)
}

func (m *multimapTable) ValuesOf(key []byte) kv.Iterator {
	prefix := m.keyPrefix(key)
	return &valuesIterator{
		inner: m.flat.Scan(prefix, prefixSuccessor(prefix)),
		key:   append([]byte(nil), key...),
		strip: len(prefix),
	}
}

func (m *multimapTable) Range(start, end []byte) kv.Iterator {
	return &pairIterator{
		inner: m.flat.Scan(m.prefix, prefixSuccessor(m.prefix)),
		strip: len(m.prefix),
		start: start,
		end:   end,
	}
}

func (m *multimapTable) Put(key, value []byte) error {
	return m.flat.Set(m.pairKey(key, value), nil)
}

func (m *multimapTable) Remove(key, value []byte) (bool, error) {
	row := m.pairKey(key, value)
	_, ok, err := m.flat.Get(row)
	if err != nil || !ok {
		return false, err
	}
	if err := m.flat.Delete(row); err != nil {
		return false, err
	}
	return true, nil
}

func (m *multimapTable) RemoveAll(key []byte) (bool, error) {
	prefix := m.keyPrefix(key)
	var rows [][]byte
	it := m.flat.Scan(prefix, prefixSuccessor(prefix))
	for it.Next() {
		rows = append(rows, append([]byte(nil), it.Key()...))
	}
	if err := it.Err(); err != nil {
		it.Close()
		return false, err
	}
	if err := it.Close(); err != nil {
		return false, err
	}
	for _, row := range rows {
		if err := m.flat.Delete(row); err != nil {
			return false, err
		}
	}
	return len(rows) > 0, nil
}

// valuesIterator yields the values of one multimap key.
type valuesIterator struct {
	inner kv.Iterator
	key   []byte
	strip int
}

func (v *valuesIterator) Next() bool    { return v.inner.Next() }
func (v *valuesIterator) Key() []byte   { return v.key }
func (v *valuesIterator) Value() []byte { return v.inner.Key()[v.strip:] }
func (v *valuesIterator) Err() error    { return v.inner.Err() }
func (v *valuesIterator) Close() error  { return v.inner.Close() }

// pairIterator decodes multimap rows back into (key, value) entries,
// filtering on the requested key bounds.
type pairIterator struct {
	inner kv.Iterator
	strip int

	start []byte
	end   []byte

	key   []byte
	value []byte
	err   error
}

func (p *pairIterator) Next() bool {
	if p.err != nil {
		return false
	}
	for p.inner.Next() {
		row := p.inner.Key()[p.strip:]
		if len(row) < 4 {
			p.err = fmt.Errorf("corrupt multimap row")
			return false
		}
		klen := int(binary.BigEndian.Uint32(row[:4]))
		if len(row) < 4+klen {
			p.err = fmt.Errorf("corrupt multimap row")
			return false
		}
		key := row[4 : 4+klen]
		if p.start != nil && bytes.Compare(key, p.start) < 0 {
			continue
		}
		if p.end != nil && bytes.Compare(key, p.end) >= 0 {
			continue
		}
		p.key = key
		p.value = row[4+klen:]
		return true
	}
	return false
}

func (p *pairIterator) Key() []byte   { return p.key }
func (p *pairIterator) Value() []byte { return p.value }

func (p *pairIterator) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.inner.Err()
}

func (p *pairIterator) Close() error { return p.inner.Close() }
