// Package kv defines the ordered, transactional key-value contract the
// layout layer is built on.
//
// A Store hands out snapshot-isolated read transactions and exclusive write
// transactions. Within a transaction, data lives in named tables: plain
// tables map one key to one value, multimap tables map one key to many
// values. Keys and values are opaque byte strings; tables iterate in
// ascending byte order of their keys. Multimap values are yielded in a
// stable per-key order, which for the bundled drivers is ascending byte
// order of the value itself.
//
// # Transactions
//
// Read transactions observe a consistent snapshot taken at BeginRead and are
// safe to use concurrently with writers and with each other. Write
// transactions are exclusive with respect to conflicting writes; whether a
// conflict surfaces at operation time or at Commit is driver-specific, but
// it always satisfies errors.Is(err, ErrConflict). A transaction must be
// finished exactly once, with Commit (write only) or Discard. Discard after
// Commit is a no-op, so `defer txn.Discard()` is the normal shape:
//
//	txn, err := store.BeginWrite()
//	if err != nil { ... }
//	defer txn.Discard()
//	tbl, err := txn.CreateTable("events")
//	if err != nil { ... }
//	if err := tbl.Set(key, value); err != nil { ... }
//	return txn.Commit()
//
// # Tables
//
// Opening a table that does not exist fails with ErrTableNotFound. In write
// transactions, CreateTable and CreateMultimap open the table if it exists
// and create it otherwise; opening an existing table under the wrong kind
// fails with ErrTableKind. Deleting a table removes the table and all of its
// rows in the same transaction.
//
// Cancellation is not modeled here: operations run against the base store
// synchronously and are sized by the caller. Drivers live in the badgerdb
// and leveldb subpackages, and kvtest carries a contract suite every driver
// must pass.
package kv
