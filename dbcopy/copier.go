package dbcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/resource"
)

// DestinationNotEmptyError is returned when any planned table already
// holds rows in the destination store. It carries the sorted names of
// every conflicting table. No row has been copied when it is returned.
type DestinationNotEmptyError struct {
	Tables []string
}

func (e *DestinationNotEmptyError) Error() string {
	return fmt.Sprintf("destination tables not empty: %s", strings.Join(e.Tables, ", "))
}

// Options configures Copy.
type Options struct {
	// Controller throttles copy IO. Nil applies no limit.
	Controller *resource.Controller

	// Logger receives debug output.
	Logger *slog.Logger
}

// Report summarizes a completed copy.
type Report struct {
	// Tables counts source tables copied. Planned tables missing from
	// the source are skipped and not counted.
	Tables int

	// Rows counts rows copied across all tables. For multimaps every
	// (key, value) entry is one row.
	Rows int64

	// Bytes counts key plus value bytes copied.
	Bytes int64
}

// Copy copies every planned table from src to dst inside one transaction
// pair: a read transaction on src and a write transaction on dst, so the
// destination sees either the whole plan or nothing.
//
// Before any write, every planned table is checked in the destination;
// if any already holds rows, Copy fails with DestinationNotEmptyError
// listing all of them. Planned tables missing from the source are
// skipped. Existing empty destination tables are fine.
func Copy(ctx context.Context, src, dst kv.Store, plan Plan, optFns ...func(o *Options)) (*Report, error) {
	opts := Options{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	srcTxn, err := src.BeginRead()
	if err != nil {
		return nil, fmt.Errorf("failed to begin source read transaction: %w", err)
	}
	defer srcTxn.Discard()

	dstTxn, err := dst.BeginWrite()
	if err != nil {
		return nil, fmt.Errorf("failed to begin destination write transaction: %w", err)
	}
	defer dstTxn.Discard()

	if err := preflight(dstTxn, plan); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, step := range plan {
		c, err := copyStep(ctx, srcTxn, dstTxn, step, opts.Controller)
		if errors.Is(err, kv.ErrTableNotFound) {
			opts.Logger.Debug("skipped missing source table",
				slog.String("table", step.name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to copy table %q: %w", step.name, err)
		}

		report.Tables++
		report.Rows += c.rows
		report.Bytes += c.bytes
		opts.Logger.Debug("copied table",
			slog.String("table", step.name),
			slog.Int64("rows", c.rows),
			slog.Int64("bytes", c.bytes))
	}

	if err := dstTxn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit destination: %w", err)
	}
	return report, nil
}

// preflight checks every planned table in the destination before the
// first write, so a conflict never leaves a partial copy behind.
func preflight(txn kv.WriteTxn, plan Plan) error {
	var dirty []string
	for _, step := range plan {
		empty, err := destinationEmpty(txn, step)
		if err != nil {
			return fmt.Errorf("failed to check destination table %q: %w", step.name, err)
		}
		if !empty {
			dirty = append(dirty, step.name)
		}
	}
	if len(dirty) > 0 {
		sort.Strings(dirty)
		return &DestinationNotEmptyError{Tables: dirty}
	}
	return nil
}

func destinationEmpty(txn kv.ReadTxn, step Step) (bool, error) {
	it, err := openRows(txn, step)
	if errors.Is(err, kv.ErrTableNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = it.Close() }()

	if it.Next() {
		return false, nil
	}
	return true, it.Err()
}

type copied struct {
	rows  int64
	bytes int64
}

func copyStep(ctx context.Context, src kv.ReadTxn, dst kv.WriteTxn, step Step, rc *resource.Controller) (copied, error) {
	it, err := openRows(src, step)
	if err != nil {
		return copied{}, err
	}
	defer func() { _ = it.Close() }()

	put, err := destPut(dst, step)
	if err != nil {
		return copied{}, err
	}

	var c copied
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		key, value := it.Key(), it.Value()
		if err := rc.WaitIO(ctx, len(key)+len(value)); err != nil {
			return c, err
		}
		if err := put(key, value); err != nil {
			return c, err
		}
		c.rows++
		c.bytes += int64(len(key) + len(value))
	}
	return c, it.Err()
}

func openRows(txn kv.ReadTxn, step Step) (kv.Iterator, error) {
	switch step.kind {
	case kv.KindTable:
		tbl, err := txn.OpenTable(step.name)
		if err != nil {
			return nil, err
		}
		return tbl.Range(nil, nil), nil
	case kv.KindMultimap:
		mm, err := txn.OpenMultimap(step.name)
		if err != nil {
			return nil, err
		}
		return mm.Range(nil, nil), nil
	default:
		return nil, fmt.Errorf("step %q: unknown table kind %d", step.name, step.kind)
	}
}

func destPut(txn kv.WriteTxn, step Step) (func(key, value []byte) error, error) {
	switch step.kind {
	case kv.KindTable:
		tbl, err := txn.CreateTable(step.name)
		if err != nil {
			return nil, err
		}
		return tbl.Set, nil
	case kv.KindMultimap:
		mm, err := txn.CreateMultimap(step.name)
		if err != nil {
			return nil, err
		}
		return mm.Put, nil
	default:
		return nil, fmt.Errorf("step %q: unknown table kind %d", step.name, step.kind)
	}
}
