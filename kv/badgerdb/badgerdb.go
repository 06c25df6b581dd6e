// Package badgerdb implements the kv contract on top of Badger.
//
// Tables are namespaced through the shared catalog encoding; transactions
// map directly onto Badger transactions, so Badger's limits apply: a write
// transaction supports one open iterator at a time, and very large write
// transactions can fail with Badger's transaction-size error. Size
// transactions accordingly.
package badgerdb

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger"

	"github.com/stratakv/strata/internal/catalog"
	"github.com/stratakv/strata/kv"
)

// Options configures Open.
type Options struct {
	// Logger receives store lifecycle events. Defaults to a discard logger.
	Logger *slog.Logger

	// SyncWrites mirrors Badger's option of the same name. Defaults to
	// true.
	SyncWrites bool
}

// Store is a Badger-backed kv.Store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	closed atomic.Bool
}

var _ kv.Store = (*Store)(nil)

// Open opens or creates a store at path.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	o := Options{
		Logger:     slog.New(slog.DiscardHandler),
		SyncWrites: true,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(o.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	o.Logger.Info("badger store opened", "path", path)

	return &Store{db: db, logger: o.Logger}, nil
}

// BeginRead implements kv.Store.
func (s *Store) BeginRead() (kv.ReadTxn, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	f := &flat{txn: s.db.NewTransaction(false)}
	return &readTxn{TxnView: catalog.NewTxnView(f), f: f}, nil
}

// BeginWrite implements kv.Store.
func (s *Store) BeginWrite() (kv.WriteTxn, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	f := &flat{txn: s.db.NewTransaction(true), write: true}
	return &writeTxn{readTxn{TxnView: catalog.NewTxnView(f), f: f}}, nil
}

// Close implements kv.Store.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger store: %w", err)
	}
	return nil
}

// flat adapts one Badger transaction to the catalog primitive.
type flat struct {
	txn   *badger.Txn
	write bool
	done  bool
}

func (f *flat) Get(key []byte) ([]byte, bool, error) {
	if f.done {
		return nil, false, kv.ErrTxnClosed
	}
	item, err := f.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

func (f *flat) Set(key, value []byte) error {
	if f.done {
		return kv.ErrTxnClosed
	}
	if !f.write {
		return kv.ErrReadOnly
	}
	// Badger holds on to the slices until commit.
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	if err := f.txn.Set(k, v); err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (f *flat) Delete(key []byte) error {
	if f.done {
		return kv.ErrTxnClosed
	}
	if !f.write {
		return kv.ErrReadOnly
	}
	k := append([]byte(nil), key...)
	if err := f.txn.Delete(k); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (f *flat) Scan(start, end []byte) kv.Iterator {
	if f.done {
		return &errIterator{err: kv.ErrTxnClosed}
	}
	return &flatIterator{
		it:    f.txn.NewIterator(badger.DefaultIteratorOptions),
		start: start,
		end:   end,
	}
}

type flatIterator struct {
	it    *badger.Iterator
	start []byte
	end   []byte

	seeked bool
	done   bool
	key    []byte
	value  []byte
	err    error
}

func (i *flatIterator) Next() bool {
	if i.done {
		return false
	}
	if i.seeked {
		i.it.Next()
	} else {
		i.it.Seek(i.start)
		i.seeked = true
	}
	if !i.it.Valid() {
		i.done = true
		return false
	}
	item := i.it.Item()
	key := item.Key()
	if i.end != nil && bytes.Compare(key, i.end) >= 0 {
		i.done = true
		return false
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		i.err = fmt.Errorf("badger scan: %w", err)
		i.done = true
		return false
	}
	i.key = key
	i.value = value
	return true
}

func (i *flatIterator) Key() []byte   { return i.key }
func (i *flatIterator) Value() []byte { return i.value }
func (i *flatIterator) Err() error    { return i.err }

func (i *flatIterator) Close() error {
	i.done = true
	i.it.Close()
	return nil
}

// errIterator yields nothing but the given error.
type errIterator struct{ err error }

func (e *errIterator) Next() bool    { return false }
func (e *errIterator) Key() []byte   { return nil }
func (e *errIterator) Value() []byte { return nil }
func (e *errIterator) Err() error    { return e.err }
func (e *errIterator) Close() error  { return nil }

type readTxn struct {
	catalog.TxnView
	f *flat
}

var _ kv.ReadTxn = (*readTxn)(nil)

func (t *readTxn) Discard() {
	if t.f.done {
		return
	}
	t.f.done = true
	t.f.txn.Discard()
}

type writeTxn struct {
	readTxn
}

var _ kv.WriteTxn = (*writeTxn)(nil)

func (t *writeTxn) Commit() error {
	if t.f.done {
		return kv.ErrTxnClosed
	}
	t.f.done = true
	if err := t.f.txn.Commit(); err != nil {
		if err == badger.ErrConflict {
			return fmt.Errorf("%w: %w", kv.ErrConflict, err)
		}
		return fmt.Errorf("failed to commit badger transaction: %w", err)
	}
	return nil
}
