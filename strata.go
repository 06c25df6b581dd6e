package strata

import (
	"fmt"
	"time"

	"github.com/stratakv/strata/kv"
)

// DB wraps a base store and runs callers' work inside its transactions.
// The layer packages (partition, bucket, bitmap, dump, dbcopy) operate on
// the kv transactions a DB hands out.
type DB struct {
	store   kv.Store
	logger  *Logger
	metrics MetricsCollector
}

// New wraps an opened base store. The DB takes ownership: Close closes
// the store.
func New(store kv.Store, optFns ...Option) (*DB, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	opts := applyOptions(optFns)
	return &DB{
		store:   store,
		logger:  opts.logger,
		metrics: opts.metrics,
	}, nil
}

// Store returns the wrapped base store.
func (db *DB) Store() kv.Store {
	return db.store
}

// Logger returns the configured logger. Useful for threading the same
// slog.Logger into layer package options.
func (db *DB) Logger() *Logger {
	return db.logger
}

// View runs fn inside a read transaction. The transaction is discarded
// when fn returns.
func (db *DB) View(fn func(txn kv.ReadTxn) error) error {
	start := time.Now()
	err := translateError(db.view(fn))
	duration := time.Since(start)
	db.metrics.RecordView(duration, err)
	db.logger.LogView(duration, err)
	return err
}

func (db *DB) view(fn func(txn kv.ReadTxn) error) error {
	txn, err := db.store.BeginRead()
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer txn.Discard()
	return fn(txn)
}

// Update runs fn inside a write transaction and commits when fn returns
// nil. When fn fails the transaction is discarded and nothing becomes
// visible.
func (db *DB) Update(fn func(txn kv.WriteTxn) error) error {
	start := time.Now()
	err := translateError(db.update(fn))
	duration := time.Since(start)
	db.metrics.RecordUpdate(duration, err)
	db.logger.LogUpdate(duration, err)
	return err
}

func (db *DB) update(fn func(txn kv.WriteTxn) error) error {
	txn, err := db.store.BeginWrite()
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Tables lists all tables in the store, sorted by name.
func (db *DB) Tables() ([]kv.TableInfo, error) {
	var infos []kv.TableInfo
	err := db.View(func(txn kv.ReadTxn) error {
		var err error
		infos, err = txn.ListTables()
		return err
	})
	return infos, err
}

// Close closes the wrapped store. In-flight transactions become invalid.
// Safe to call on a nil DB.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	err := translateError(db.store.Close())
	db.logger.LogClose(err)
	return err
}
