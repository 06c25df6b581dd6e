package dump

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/stratakv/strata/kv"
)

// Options configures Dump.
type Options struct {
	// Tables names the tables to dump, in order. Empty means every table
	// in the store, sorted by name.
	Tables []string

	// Compression selects the stream codec. Defaults to Snappy.
	Compression Compression

	// Logger receives a debug line per dumped table. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// Dump writes every selected table to w as one dump file. It reads through
// the given transaction, so the dump is a consistent snapshot.
func Dump(w io.Writer, txn kv.ReadTxn, optFns ...func(o *Options)) error {
	opts := Options{
		Compression: Snappy,
		Logger:      slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.Compression.valid() {
		return fmt.Errorf("compression byte %d: %w", uint8(opts.Compression), ErrUnknownCompression)
	}

	tables, err := resolveTables(txn, opts.Tables)
	if err != nil {
		return err
	}

	if _, err := w.Write(encodeHeader(opts.Compression)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cw, err := opts.Compression.newWriter(w)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(cw)

	if err := writeManifest(bw, tables); err != nil {
		return err
	}

	for _, tm := range tables {
		n, err := dumpTable(bw, txn, tm)
		if err != nil {
			return err
		}

		opts.Logger.Debug("dumped table", "table", tm.Name, "kind", tm.Kind.String(), "entries", n)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}

	return nil
}

// resolveTables maps the requested names onto manifest entries, or takes
// every table when no names are given.
func resolveTables(txn kv.ReadTxn, names []string) ([]TableManifest, error) {
	infos, err := txn.ListTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	if len(names) == 0 {
		tables := make([]TableManifest, 0, len(infos))
		for _, info := range infos {
			tables = append(tables, TableManifest{Name: info.Name, Kind: info.Kind})
		}
		return tables, nil
	}

	byName := make(map[string]kv.Kind, len(infos))
	for _, info := range infos {
		byName[info.Name] = info.Kind
	}

	tables := make([]TableManifest, 0, len(names))
	for _, name := range names {
		kind, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("table %q: %w", name, kv.ErrTableNotFound)
		}
		tables = append(tables, TableManifest{Name: name, Kind: kind})
	}

	return tables, nil
}

func writeManifest(w *bufio.Writer, tables []TableManifest) error {
	if err := writeUint32(w, uint32(len(tables))); err != nil {
		return err
	}

	for _, tm := range tables {
		if len(tm.Name) > math.MaxUint16 {
			return fmt.Errorf("table name %q does not fit the manifest", tm.Name)
		}

		if err := w.WriteByte(byte(tm.Kind)); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		if err := writeUint16(w, uint16(len(tm.Name))); err != nil {
			return err
		}
		if _, err := w.WriteString(tm.Name); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	return nil
}

// dumpTable writes one table section: its entries followed by the count
// and digest trailer.
func dumpTable(w *bufio.Writer, txn kv.ReadTxn, tm TableManifest) (uint64, error) {
	it, err := openRows(txn, tm)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	h := xxh3.New()
	var count uint64

	for it.Next() {
		if err := writeEntry(w, h, it.Key(), it.Value()); err != nil {
			return 0, fmt.Errorf("table %q: %w", tm.Name, err)
		}
		count++
	}
	if err := it.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan table %q: %w", tm.Name, err)
	}

	if err := w.WriteByte(tagEnd); err != nil {
		return 0, fmt.Errorf("failed to write section trailer: %w", err)
	}
	if err := writeUint64(w, count); err != nil {
		return 0, err
	}
	if err := writeUint64(w, h.Sum64()); err != nil {
		return 0, err
	}

	return count, nil
}

// openRows scans a table's rows; for multimaps every (key, value) pair is
// one row.
func openRows(txn kv.ReadTxn, tm TableManifest) (kv.Iterator, error) {
	switch tm.Kind {
	case kv.KindTable:
		tbl, err := txn.OpenTable(tm.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to open table %q: %w", tm.Name, err)
		}
		return tbl.Range(nil, nil), nil
	case kv.KindMultimap:
		mm, err := txn.OpenMultimap(tm.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to open multimap %q: %w", tm.Name, err)
		}
		return mm.Range(nil, nil), nil
	default:
		return nil, fmt.Errorf("table %q: kind %d: %w", tm.Name, tm.Kind, ErrCorrupt)
	}
}

func writeEntry(w *bufio.Writer, h *xxh3.Hasher, key, value []byte) error {
	if err := w.WriteByte(tagEntry); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err := writeChunk(w, h, key); err != nil {
		return err
	}
	return writeChunk(w, h, value)
}

// writeChunk writes one length-prefixed byte string and feeds the same
// bytes to the section digest.
func writeChunk(w *bufio.Writer, h *xxh3.Hasher, p []byte) error {
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(p)))

	if _, err := w.Write(lb[:]); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := w.Write(p); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	h.Write(lb[:])
	h.Write(p)

	return nil
}

func writeUint16(w *bufio.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}

func writeUint64(w *bufio.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}
