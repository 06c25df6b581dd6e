// Package leveldb implements the kv contract on top of goleveldb.
//
// Read transactions are snapshots; write transactions use goleveldb's
// exclusive transaction, so writers serialize at BeginWrite and commit
// conflicts cannot occur.
package leveldb

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/stratakv/strata/internal/catalog"
	"github.com/stratakv/strata/kv"
)

// Options configures Open.
type Options struct {
	// Logger receives store lifecycle events. Defaults to a discard logger.
	Logger *slog.Logger

	// LevelDB passes native options through to goleveldb. Nil uses the
	// library defaults.
	LevelDB *opt.Options
}

// Store is a goleveldb-backed kv.Store.
type Store struct {
	db     *leveldb.DB
	logger *slog.Logger
	closed atomic.Bool
}

var _ kv.Store = (*Store)(nil)

// Open opens or creates a store at path.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	o := Options{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	db, err := leveldb.OpenFile(path, o.LevelDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb store: %w", err)
	}

	o.Logger.Info("leveldb store opened", "path", path)

	return &Store{db: db, logger: o.Logger}, nil
}

// BeginRead implements kv.Store.
func (s *Store) BeginRead() (kv.ReadTxn, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to begin leveldb snapshot: %w", err)
	}
	f := &flat{reader: snap}
	return &readTxn{TxnView: catalog.NewTxnView(f), f: f, snap: snap}, nil
}

// BeginWrite implements kv.Store.
func (s *Store) BeginWrite() (kv.WriteTxn, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	tr, err := s.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin leveldb transaction: %w", err)
	}
	f := &flat{reader: tr, writer: tr}
	return &writeTxn{readTxn: readTxn{TxnView: catalog.NewTxnView(f), f: f}, tr: tr}, nil
}

// Close implements kv.Store.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close leveldb store: %w", err)
	}
	return nil
}

// reader is the read surface shared by snapshots and transactions.
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// flat adapts one snapshot or transaction to the catalog primitive.
type flat struct {
	reader reader
	writer *leveldb.Transaction
	done   bool
}

func (f *flat) Get(key []byte) ([]byte, bool, error) {
	if f.done {
		return nil, false, kv.ErrTxnClosed
	}
	value, err := f.reader.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leveldb get: %w", err)
	}
	return value, true, nil
}

func (f *flat) Set(key, value []byte) error {
	if f.done {
		return kv.ErrTxnClosed
	}
	if f.writer == nil {
		return kv.ErrReadOnly
	}
	if err := f.writer.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (f *flat) Delete(key []byte) error {
	if f.done {
		return kv.ErrTxnClosed
	}
	if f.writer == nil {
		return kv.ErrReadOnly
	}
	if err := f.writer.Delete(key, nil); err != nil {
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

func (f *flat) Scan(start, end []byte) kv.Iterator {
	if f.done {
		return &errIterator{err: kv.ErrTxnClosed}
	}
	it := f.reader.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &flatIterator{it: it}
}

type flatIterator struct {
	it iterator.Iterator
}

func (i *flatIterator) Next() bool    { return i.it.Next() }
func (i *flatIterator) Key() []byte   { return i.it.Key() }
func (i *flatIterator) Value() []byte { return i.it.Value() }

func (i *flatIterator) Err() error {
	if err := i.it.Error(); err != nil {
		return fmt.Errorf("leveldb scan: %w", err)
	}
	return nil
}

func (i *flatIterator) Close() error {
	i.it.Release()
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
	f    *flat
	snap *leveldb.Snapshot
}

var _ kv.ReadTxn = (*readTxn)(nil)

func (t *readTxn) Discard() {
	if t.f.done {
		return
	}
	t.f.done = true
	if t.snap != nil {
		t.snap.Release()
	}
}

type writeTxn struct {
	readTxn
	tr *leveldb.Transaction
}

var _ kv.WriteTxn = (*writeTxn)(nil)

func (t *writeTxn) Discard() {
	if t.f.done {
		return
	}
	t.f.done = true
	t.tr.Discard()
}

func (t *writeTxn) Commit() error {
	if t.f.done {
		return kv.ErrTxnClosed
	}
	t.f.done = true
	if err := t.tr.Commit(); err != nil {
		return fmt.Errorf("failed to commit leveldb transaction: %w", err)
	}
	return nil
}
