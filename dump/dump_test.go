package dump_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/dump"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/kv/badgerdb"
	"github.com/stratakv/strata/kv/leveldb"
)

func newBadger(t *testing.T) kv.Store {
	t.Helper()

	s, err := badgerdb.Open(t.TempDir(), func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func newLevel(t *testing.T) kv.Store {
	t.Helper()

	s, err := leveldb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

// seed fills a store with one plain table, one multimap, and one table
// that exists but holds nothing.
func seed(t *testing.T, db kv.Store) {
	t.Helper()

	txn, err := db.BeginWrite()
	require.NoError(t, err)
	defer txn.Discard()

	tbl, err := txn.CreateTable("plain")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, tbl.Set([]byte("k2"), []byte("v2")))

	mm, err := txn.CreateMultimap("multi")
	require.NoError(t, err)
	require.NoError(t, mm.Put([]byte("k"), []byte("a")))
	require.NoError(t, mm.Put([]byte("k"), []byte("b")))

	_, err = txn.CreateTable("empty")
	require.NoError(t, err)

	require.NoError(t, txn.Commit())
}

func dumpStore(t *testing.T, db kv.Store, optFns ...func(o *dump.Options)) []byte {
	t.Helper()

	txn, err := db.BeginRead()
	require.NoError(t, err)
	defer txn.Discard()

	var buf bytes.Buffer
	require.NoError(t, dump.Dump(&buf, txn, optFns...))

	return buf.Bytes()
}

func restoreInto(t *testing.T, db kv.Store, data []byte) error {
	t.Helper()

	txn, err := db.BeginWrite()
	require.NoError(t, err)
	defer txn.Discard()

	if err := dump.Restore(bytes.NewReader(data), txn); err != nil {
		return err
	}

	return txn.Commit()
}

func tableRows(t *testing.T, db kv.Store, table string) map[string]string {
	t.Helper()

	txn, err := db.BeginRead()
	require.NoError(t, err)
	defer txn.Discard()

	tbl, err := txn.OpenTable(table)
	require.NoError(t, err)

	it := tbl.Range(nil, nil)
	defer it.Close()

	rows := make(map[string]string)
	for it.Next() {
		rows[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Err())

	return rows
}

func multimapValues(t *testing.T, db kv.Store, table string, key []byte) []string {
	t.Helper()

	txn, err := db.BeginRead()
	require.NoError(t, err)
	defer txn.Discard()

	mm, err := txn.OpenMultimap(table)
	require.NoError(t, err)

	it := mm.ValuesOf(key)
	defer it.Close()

	var vals []string
	for it.Next() {
		vals = append(vals, string(it.Value()))
	}
	require.NoError(t, it.Err())

	return vals
}

func tableNames(t *testing.T, db kv.Store) []string {
	t.Helper()

	txn, err := db.BeginRead()
	require.NoError(t, err)
	defer txn.Discard()

	infos, err := txn.ListTables()
	require.NoError(t, err)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	return names
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	codecs := map[string]dump.Compression{
		"none":   dump.None,
		"snappy": dump.Snappy,
		"lz4":    dump.LZ4,
		"zstd":   dump.Zstd,
	}

	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			src := newBadger(t)
			seed(t, src)

			data := dumpStore(t, src, func(o *dump.Options) {
				o.Compression = c
			})

			dst := newLevel(t)
			require.NoError(t, restoreInto(t, dst, data))

			require.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, tableRows(t, dst, "plain"))
			require.Equal(t, []string{"a", "b"}, multimapValues(t, dst, "multi", []byte("k")))
			require.Empty(t, tableRows(t, dst, "empty"))
			require.ElementsMatch(t, []string{"plain", "multi", "empty"}, tableNames(t, dst))
		})
	}
}

func TestDumpNamedSubset(t *testing.T) {
	src := newBadger(t)
	seed(t, src)

	data := dumpStore(t, src, func(o *dump.Options) {
		o.Tables = []string{"plain"}
	})

	dst := newLevel(t)
	require.NoError(t, restoreInto(t, dst, data))

	require.ElementsMatch(t, []string{"plain"}, tableNames(t, dst))
	require.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, tableRows(t, dst, "plain"))
}

func TestDumpUnknownNamedTable(t *testing.T) {
	src := newBadger(t)
	seed(t, src)

	txn, err := src.BeginRead()
	require.NoError(t, err)
	defer txn.Discard()

	var buf bytes.Buffer
	err = dump.Dump(&buf, txn, func(o *dump.Options) {
		o.Tables = []string{"plain", "nope"}
	})
	require.ErrorIs(t, err, kv.ErrTableNotFound)

	// Nothing was written for a dump that never started.
	require.Zero(t, buf.Len())
}

func TestRestoreRefusesDirtyDestination(t *testing.T) {
	src := newBadger(t)
	seed(t, src)
	data := dumpStore(t, src)

	dst := newLevel(t)
	txn, err := dst.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("plain")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("old"), []byte("row")))
	mm, err := txn.CreateMultimap("multi")
	require.NoError(t, err)
	require.NoError(t, mm.Put([]byte("old"), []byte("row")))
	require.NoError(t, txn.Commit())

	err = restoreInto(t, dst, data)

	var conflict *dump.DestinationNotEmptyError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{"multi", "plain"}, conflict.Tables)

	// The destination kept exactly what it had.
	require.ElementsMatch(t, []string{"plain", "multi"}, tableNames(t, dst))
	require.Equal(t, map[string]string{"old": "row"}, tableRows(t, dst, "plain"))
}

func TestRestoreAcceptsExistingEmptyTables(t *testing.T) {
	src := newBadger(t)
	seed(t, src)
	data := dumpStore(t, src)

	dst := newLevel(t)
	txn, err := dst.BeginWrite()
	require.NoError(t, err)
	_, err = txn.CreateTable("plain")
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	require.NoError(t, restoreInto(t, dst, data))
	require.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, tableRows(t, dst, "plain"))
}

func TestRestoreRejectsBadHeader(t *testing.T) {
	dst := newLevel(t)

	err := restoreInto(t, dst, []byte("not a dump, definitely"))
	require.ErrorIs(t, err, dump.ErrBadMagic)

	err = restoreInto(t, dst, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestRestoreRejectsUnsupportedVersion(t *testing.T) {
	src := newBadger(t)
	seed(t, src)
	data := dumpStore(t, src)

	data[4] = 99

	var verr *dump.UnsupportedVersionError
	require.ErrorAs(t, restoreInto(t, newLevel(t), data), &verr)
	require.Equal(t, uint8(99), verr.Version)
}

func TestRestoreRejectsUnknownCompression(t *testing.T) {
	src := newBadger(t)
	seed(t, src)
	data := dumpStore(t, src)

	data[5] = 42

	require.ErrorIs(t, restoreInto(t, newLevel(t), data), dump.ErrUnknownCompression)
}

func TestRestoreDetectsFlippedBytes(t *testing.T) {
	src := newBadger(t)
	seed(t, src)

	// Uncompressed, so the stored values sit in the file verbatim.
	data := dumpStore(t, src, func(o *dump.Options) {
		o.Compression = dump.None
	})

	i := bytes.Index(data, []byte("v1"))
	require.Positive(t, i)
	data[i+1] ^= 0xFF

	err := restoreInto(t, newLevel(t), data)

	var cerr *dump.ChecksumError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "plain", cerr.Table)
}

func TestCompressionNames(t *testing.T) {
	require.Equal(t, "none", dump.None.String())
	require.Equal(t, "snappy", dump.Snappy.String())
	require.Equal(t, "lz4", dump.LZ4.String())
	require.Equal(t, "zstd", dump.Zstd.String())
	require.Equal(t, "compression(9)", dump.Compression(9).String())
}
