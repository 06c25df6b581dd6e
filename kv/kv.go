package kv

// Kind distinguishes the two table shapes a store can hold.
type Kind uint8

const (
	// KindTable is a plain table: one key, one value.
	KindTable Kind = iota + 1
	// KindMultimap is a multimap table: one key, many values.
	KindMultimap
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindMultimap:
		return "multimap"
	default:
		return "unknown"
	}
}

// TableInfo describes one named table in a store.
type TableInfo struct {
	Name string
	Kind Kind
}

// Store is an embedded, ordered, transactional key-value store.
//
// Implementations must allow any number of concurrent read transactions.
// Write transactions are exclusive with respect to conflicting writes; a
// lost conflict surfaces as ErrConflict from Commit.
type Store interface {
	// BeginRead starts a snapshot-isolated read transaction.
	BeginRead() (ReadTxn, error)

	// BeginWrite starts a write transaction.
	BeginWrite() (WriteTxn, error)

	// Close releases the store. In-flight transactions become invalid.
	Close() error
}

// ReadTxn is a consistent snapshot of the store.
type ReadTxn interface {
	// OpenTable opens an existing plain table. Fails with ErrTableNotFound
	// if the table does not exist and ErrTableKind if it exists as a
	// multimap.
	OpenTable(name string) (Table, error)

	// OpenMultimap opens an existing multimap table. Fails with
	// ErrTableNotFound or ErrTableKind like OpenTable.
	OpenMultimap(name string) (MultimapTable, error)

	// ListTables returns all tables in the store, sorted by name.
	ListTables() ([]TableInfo, error)

	// Discard releases the transaction. Safe to call more than once and
	// after Commit.
	Discard()
}

// WriteTxn is an exclusive mutating transaction. It can read everything a
// ReadTxn can, including its own uncommitted writes.
type WriteTxn interface {
	ReadTxn

	// CreateTable opens a plain table, creating it if it does not exist.
	CreateTable(name string) (WriteTable, error)

	// CreateMultimap opens a multimap table, creating it if it does not
	// exist.
	CreateMultimap(name string) (WriteMultimap, error)

	// DeleteTable removes a plain table and all of its rows. Reports
	// whether the table existed.
	DeleteTable(name string) (bool, error)

	// DeleteMultimap removes a multimap table and all of its rows. Reports
	// whether the table existed.
	DeleteMultimap(name string) (bool, error)

	// Commit makes the transaction's writes durable and visible. The
	// transaction is finished afterwards regardless of the outcome.
	Commit() error
}

// Table is a read view of a plain table.
type Table interface {
	// Get returns the value stored under key and whether it exists.
	Get(key []byte) ([]byte, bool, error)

	// Range iterates rows with start <= key < end in ascending key order.
	// A nil start iterates from the first key, a nil end through the last.
	Range(start, end []byte) Iterator
}

// WriteTable is a mutable view of a plain table.
type WriteTable interface {
	Table

	// Set stores value under key, replacing any existing value. The byte
	// slices are copied; the caller may reuse them.
	Set(key, value []byte) error

	// Delete removes the row for key. Reports whether it existed.
	Delete(key []byte) (bool, error)
}

// MultimapTable is a read view of a multimap table.
type MultimapTable interface {
	// ValuesOf iterates all values stored under key, in the store's stable
	// per-key order. The iterator's Key reports key for every entry.
	ValuesOf(key []byte) Iterator

	// Range iterates all (key, value) entries with start <= key < end.
	// Entries are grouped per key, values within a group in the per-key
	// order. Groups come in a stable ascending order: the bundled drivers
	// order by key length first, then key bytes.
	Range(start, end []byte) Iterator
}

// WriteMultimap is a mutable view of a multimap table.
type WriteMultimap interface {
	MultimapTable

	// Put adds value to the set stored under key. Adding a value that is
	// already present is a no-op. The byte slices are copied.
	Put(key, value []byte) error

	// Remove deletes one (key, value) entry. Reports whether it existed.
	Remove(key, value []byte) (bool, error)

	// RemoveAll deletes every value stored under key. Reports whether any
	// existed.
	RemoveAll(key []byte) (bool, error)
}

// Iterator walks rows in ascending order.
//
// Next advances and reports whether a row is available; Key and Value are
// only valid until the following Next or Close. After Next returns false the
// caller must check Err: a nil Err means the iteration finished, a non-nil
// Err means it failed and will not resume.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}
