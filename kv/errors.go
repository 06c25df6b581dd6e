package kv

import "errors"

var (
	// ErrTableNotFound is returned when opening a table that does not exist.
	ErrTableNotFound = errors.New("kv: table not found")

	// ErrTableKind is returned when a table exists under a different kind
	// than the one requested (plain vs multimap).
	ErrTableKind = errors.New("kv: table kind mismatch")

	// ErrInvalidName is returned for empty or oversized table names.
	ErrInvalidName = errors.New("kv: invalid table name")

	// ErrReadOnly is returned when a mutation is attempted through a read
	// transaction.
	ErrReadOnly = errors.New("kv: read-only transaction")

	// ErrTxnClosed is returned when a transaction is used after Commit or
	// Discard.
	ErrTxnClosed = errors.New("kv: transaction closed")

	// ErrConflict is returned by Commit when the write transaction lost a
	// conflict. The transaction is discarded; the caller decides whether to
	// retry.
	ErrConflict = errors.New("kv: transaction conflict")

	// ErrStoreClosed is returned when beginning a transaction on a closed
	// store.
	ErrStoreClosed = errors.New("kv: store closed")
)
