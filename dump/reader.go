package dump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/stratakv/strata/kv"
)

const (
	maxManifestTables = 1 << 16
	maxChunkLen       = 1 << 30
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// Logger receives a debug line per restored table. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// Restore reads a dump file and writes its tables into the given
// transaction. Before touching anything it checks every table the dump's
// manifest names against the destination; if any already holds rows the
// restore stops with a DestinationNotEmptyError listing all of them.
//
// A checksum failure surfaces after the section's rows were already written
// to the transaction; the caller must discard it.
func Restore(r io.Reader, txn kv.WriteTxn, optFns ...func(o *RestoreOptions)) error {
	opts := RestoreOptions{
		Logger: slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	c, err := decodeHeader(hdr[:])
	if err != nil {
		return err
	}

	cr, err := c.newReader(r)
	if err != nil {
		return err
	}
	defer cr.Close()

	br := bufio.NewReader(cr)

	manifest, err := readManifest(br)
	if err != nil {
		return err
	}

	dirty, err := preflight(txn, manifest)
	if err != nil {
		return err
	}
	if len(dirty) > 0 {
		sort.Strings(dirty)
		return &DestinationNotEmptyError{Tables: dirty}
	}

	for _, tm := range manifest {
		n, err := restoreTable(br, txn, tm)
		if err != nil {
			return err
		}

		opts.Logger.Debug("restored table", "table", tm.Name, "kind", tm.Kind.String(), "entries", n)
	}

	return nil
}

func readManifest(br *bufio.Reader) ([]TableManifest, error) {
	count, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if count > maxManifestTables {
		return nil, fmt.Errorf("manifest claims %d tables: %w", count, ErrCorrupt)
	}

	manifest := make([]TableManifest, 0, count)
	for i := uint32(0); i < count; i++ {
		kind, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		if kv.Kind(kind) != kv.KindTable && kv.Kind(kind) != kv.KindMultimap {
			return nil, fmt.Errorf("manifest kind %d: %w", kind, ErrCorrupt)
		}

		nlen, err := readUint16(br)
		if err != nil {
			return nil, err
		}
		if nlen == 0 {
			return nil, fmt.Errorf("manifest has empty table name: %w", ErrCorrupt)
		}

		name := make([]byte, nlen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}

		manifest = append(manifest, TableManifest{Name: string(name), Kind: kv.Kind(kind)})
	}

	return manifest, nil
}

// preflight returns the names of every manifest table that already holds
// rows in the destination. Tables that do not exist are clean; existing
// empty tables are clean too.
func preflight(txn kv.ReadTxn, manifest []TableManifest) ([]string, error) {
	var dirty []string

	for _, tm := range manifest {
		it, err := openDestRows(txn, tm)
		if errors.Is(err, kv.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		has := it.Next()
		scanErr := it.Err()
		it.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan table %q: %w", tm.Name, scanErr)
		}

		if has {
			dirty = append(dirty, tm.Name)
		}
	}

	return dirty, nil
}

func openDestRows(txn kv.ReadTxn, tm TableManifest) (kv.Iterator, error) {
	switch tm.Kind {
	case kv.KindTable:
		tbl, err := txn.OpenTable(tm.Name)
		if err != nil {
			if errors.Is(err, kv.ErrTableNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to open table %q: %w", tm.Name, err)
		}
		return tbl.Range(nil, nil), nil
	default:
		mm, err := txn.OpenMultimap(tm.Name)
		if err != nil {
			if errors.Is(err, kv.ErrTableNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to open multimap %q: %w", tm.Name, err)
		}
		return mm.Range(nil, nil), nil
	}
}

func restoreTable(br *bufio.Reader, txn kv.WriteTxn, tm TableManifest) (uint64, error) {
	put, err := destPut(txn, tm)
	if err != nil {
		return 0, err
	}

	h := xxh3.New()
	var count uint64

	for {
		tag, err := br.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("table %q: failed to read section: %w", tm.Name, err)
		}

		switch tag {
		case tagEnd:
			wantCount, err := readUint64(br)
			if err != nil {
				return 0, err
			}
			wantSum, err := readUint64(br)
			if err != nil {
				return 0, err
			}

			if wantCount != count || wantSum != h.Sum64() {
				return 0, &ChecksumError{
					Table:     tm.Name,
					WantCount: wantCount,
					GotCount:  count,
					WantSum:   wantSum,
					GotSum:    h.Sum64(),
				}
			}

			return count, nil
		case tagEntry:
			key, err := readChunk(br, h)
			if err != nil {
				return 0, fmt.Errorf("table %q: %w", tm.Name, err)
			}
			value, err := readChunk(br, h)
			if err != nil {
				return 0, fmt.Errorf("table %q: %w", tm.Name, err)
			}

			if err := put(key, value); err != nil {
				return 0, fmt.Errorf("failed to restore table %q: %w", tm.Name, err)
			}
			count++
		default:
			return 0, fmt.Errorf("table %q: section tag %d: %w", tm.Name, tag, ErrCorrupt)
		}
	}
}

func destPut(txn kv.WriteTxn, tm TableManifest) (func(key, value []byte) error, error) {
	switch tm.Kind {
	case kv.KindTable:
		tbl, err := txn.CreateTable(tm.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create table %q: %w", tm.Name, err)
		}
		return tbl.Set, nil
	default:
		mm, err := txn.CreateMultimap(tm.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create multimap %q: %w", tm.Name, err)
		}
		return mm.Put, nil
	}
}

// readChunk reads one length-prefixed byte string and feeds the same bytes
// to the section digest.
func readChunk(br *bufio.Reader, h *xxh3.Hasher) ([]byte, error) {
	var lb [4]byte
	if _, err := io.ReadFull(br, lb[:]); err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}

	n := binary.BigEndian.Uint32(lb[:])
	if n > maxChunkLen {
		return nil, fmt.Errorf("entry of %d bytes: %w", n, ErrCorrupt)
	}

	p := make([]byte, n)
	if _, err := io.ReadFull(br, p); err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}

	h.Write(lb[:])
	h.Write(p)

	return p, nil
}

func readUint16(br *bufio.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return 0, fmt.Errorf("failed to read dump: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(br *bufio.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return 0, fmt.Errorf("failed to read dump: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(br *bufio.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return 0, fmt.Errorf("failed to read dump: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
