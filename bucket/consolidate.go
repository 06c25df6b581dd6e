package bucket

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/stratakv/strata/kv"
)

// ErrNoTablePrefix is returned when a consolidator is created without a
// table prefix.
var ErrNoTablePrefix = errors.New("table prefix must not be empty")

// MergeFunc folds an incoming value into the target table's existing value
// for the same key. ok reports whether the target held a value; existing is
// nil otherwise. Values arrive in ascending bucket order, so a
// non-commutative law sees older buckets first.
type MergeFunc func(existing []byte, ok bool, incoming []byte) ([]byte, error)

// ConsolidatorOptions configures a consolidator.
type ConsolidatorOptions struct {
	// Logger receives debug lines for drained tables. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// Consolidator spreads writes across per-bucket tables named
// "{prefix}_{bucket}" and later folds them into one target table under a
// caller-supplied merge law. Bucket tables are ordinary tables whose rows
// keep their own keys; the bucket lives in the table name, not the row key.
//
// The consolidator is safe for concurrent use; its only shared state is
// the interned table-name map.
type Consolidator struct {
	size   uint64
	prefix string
	log    *slog.Logger

	mu    sync.Mutex
	names map[uint64]string
}

// NewConsolidator creates a consolidator over tables named with the given
// prefix, grouping size consecutive sequence numbers per bucket.
func NewConsolidator(size uint64, prefix string, optFns ...func(o *ConsolidatorOptions)) (*Consolidator, error) {
	opts := ConsolidatorOptions{
		Logger: slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if size == 0 {
		return nil, ErrInvalidBucketSize
	}
	if prefix == "" {
		return nil, ErrNoTablePrefix
	}

	return &Consolidator{
		size:   size,
		prefix: prefix,
		log:    opts.Logger,
		names:  make(map[uint64]string),
	}, nil
}

// BucketSize returns the number of sequence numbers per bucket.
func (c *Consolidator) BucketSize() uint64 { return c.size }

// Bucket returns the bucket the sequence number falls into.
func (c *Consolidator) Bucket(seq uint64) uint64 { return seq / c.size }

// TableName returns the interned name of a bucket's table.
func (c *Consolidator) TableName(bucket uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, ok := c.names[bucket]
	if !ok {
		name = fmt.Sprintf("%s_%d", c.prefix, bucket)
		c.names[bucket] = name
	}

	return name
}

// Insert writes a row into the bucket table seq falls into, creating the
// table on demand.
func (c *Consolidator) Insert(txn kv.WriteTxn, seq uint64, key, value []byte) error {
	name := c.TableName(c.Bucket(seq))

	tbl, err := txn.CreateTable(name)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", name, err)
	}

	if err := tbl.Set(key, value); err != nil {
		return fmt.Errorf("failed to write to table %q: %w", name, err)
	}

	return nil
}

// Merge folds the bucket tables from start through end, both inclusive,
// into target and deletes each table it drains. Buckets whose table does
// not exist are skipped; if none exists the store is left untouched. A
// source named like target is left in place: its rows simply serve as the
// existing values the law sees.
func (c *Consolidator) Merge(txn kv.WriteTxn, target string, start, end uint64, law MergeFunc) error {
	if target == "" {
		return ErrNoTable
	}
	if law == nil {
		return errors.New("merge law must not be nil")
	}
	if start > end {
		return ErrInvalidRange
	}

	for bucket := start; ; bucket++ {
		name := c.TableName(bucket)
		if name != target {
			if err := c.drain(txn, target, name, law); err != nil {
				return err
			}
		}

		if bucket == end {
			return nil
		}
	}
}

// MergeAll discovers every bucket table by listing names with the
// consolidator's prefix and folds them all into target. Without any bucket
// table it is a no-op.
func (c *Consolidator) MergeAll(txn kv.WriteTxn, target string, law MergeFunc) error {
	tables, err := txn.ListTables()
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	var (
		min, max uint64
		found    bool
	)
	for _, info := range tables {
		suffix, ok := strings.CutPrefix(info.Name, c.prefix+"_")
		if !ok {
			continue
		}
		bucket, err := strconv.ParseUint(suffix, 10, 64)
		if err != nil {
			continue
		}

		if !found || bucket < min {
			min = bucket
		}
		if !found || bucket > max {
			max = bucket
		}
		found = true
	}

	if !found {
		return nil
	}

	return c.Merge(txn, target, min, max, law)
}

// drain folds one source table into target and deletes it.
func (c *Consolidator) drain(txn kv.WriteTxn, target, source string, law MergeFunc) error {
	src, err := txn.OpenTable(source)
	if errors.Is(err, kv.ErrTableNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", source, err)
	}

	// Collect before writing so no scan is open while the transaction
	// mutates tables.
	pairs, err := collectPairs(src.Range(nil, nil))
	if err != nil {
		return fmt.Errorf("failed to scan table %q: %w", source, err)
	}

	tgt, err := txn.CreateTable(target)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", target, err)
	}

	for _, p := range pairs {
		existing, ok, err := tgt.Get(p.key)
		if err != nil {
			return fmt.Errorf("failed to read table %q: %w", target, err)
		}

		merged, err := law(existing, ok, p.value)
		if err != nil {
			return fmt.Errorf("merge law failed for table %q: %w", source, err)
		}

		if err := tgt.Set(p.key, merged); err != nil {
			return fmt.Errorf("failed to write table %q: %w", target, err)
		}
	}

	if _, err := txn.DeleteTable(source); err != nil {
		return fmt.Errorf("failed to delete table %q: %w", source, err)
	}

	c.log.Debug("consolidated bucket table", "source", source, "target", target, "pairs", len(pairs))

	return nil
}

type pair struct {
	key   []byte
	value []byte
}

// collectPairs drains an iterator into copied pairs and closes it.
func collectPairs(it kv.Iterator) ([]pair, error) {
	defer it.Close()

	var pairs []pair
	for it.Next() {
		pairs = append(pairs, pair{
			key:   append([]byte(nil), it.Key()...),
			value: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return pairs, nil
}
