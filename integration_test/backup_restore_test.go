package integration_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stratakv/strata"
	"github.com/stratakv/strata/archive"
	"github.com/stratakv/strata/bitmap"
	"github.com/stratakv/strata/bucket"
	"github.com/stratakv/strata/dbcopy"
	"github.com/stratakv/strata/dump"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedWorkload fills a store with a bitmap set and a bucketed multimap and
// returns a copy plan covering every table it created.
func seedWorkload(t *testing.T, db *strata.DB) dbcopy.Plan {
	t.Helper()

	members, err := bitmap.New("members")
	require.NoError(t, err)

	keys, err := bucket.NewKeyBuilder(1000)
	require.NoError(t, err)

	events, err := bucket.NewMultimap("events", keys)
	require.NoError(t, err)

	rng := testutil.NewRNG(42)
	ids := rng.IDs(500)
	seqs := rng.ZipfSequences(200, 1<<16, 1.2)

	err = db.Update(func(txn kv.WriteTxn) error {
		if err := members.InsertMany(txn, []byte("active"), ids); err != nil {
			return err
		}

		for _, seq := range seqs {
			if err := events.Add(txn, seq, []byte("stream"), rng.Bytes(24)); err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)

	return dbcopy.Plan{
		dbcopy.Table("members"),
		dbcopy.Table("members_meta"),
		dbcopy.Multimap("events"),
	}
}

func TestBackupRestoreAcrossEngines(t *testing.T) {
	ctx := context.Background()

	src := newBadger(t)
	srcDB, err := strata.New(src)
	require.NoError(t, err)

	plan := seedWorkload(t, srcDB)

	// 1. Dump the whole store into a local archive.
	store := archive.NewLocal(t.TempDir())

	var buf bytes.Buffer
	err = srcDB.View(func(txn kv.ReadTxn) error {
		return dump.Dump(&buf, txn, func(o *dump.Options) {
			o.Compression = dump.Zstd
		})
	})
	require.NoError(t, err)

	err = store.Put(ctx, "backups/daily.dump", &buf)
	require.NoError(t, err)

	names, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	require.Equal(t, []string{"backups/daily.dump"}, names)

	// 2. Restore the archive into a different engine.
	dst := newLevel(t)
	dstDB, err := strata.New(dst)
	require.NoError(t, err)

	rc, err := store.Open(ctx, "backups/daily.dump")
	require.NoError(t, err)

	err = dstDB.Update(func(txn kv.WriteTxn) error {
		return dump.Restore(rc, txn)
	})
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	// 3. Per-table digests must match across engines.
	verifier := dbcopy.NewVerifier()
	mismatches, err := verifier.Verify(ctx, src, dst, plan)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// 4. Tampering with one restored row must surface as a mismatch.
	err = dstDB.Update(func(txn kv.WriteTxn) error {
		tbl, err := txn.CreateTable("members")
		if err != nil {
			return err
		}

		it := tbl.Range(nil, nil)

		var firstKey []byte
		if it.Next() {
			firstKey = bytes.Clone(it.Key())
		}
		if err := it.Err(); err != nil {
			return err
		}
		if err := it.Close(); err != nil {
			return err
		}
		require.NotNil(t, firstKey)

		return tbl.Set(firstKey, []byte("tampered"))
	})
	require.NoError(t, err)

	mismatches, err = verifier.Verify(ctx, src, dst, plan)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "members", mismatches[0].Table)
	assert.True(t, mismatches[0].Src.Present)
	assert.True(t, mismatches[0].Dst.Present)
}

func TestRestoreRefusesDirtyDestination(t *testing.T) {
	ctx := context.Background()

	src := newBadger(t)
	srcDB, err := strata.New(src)
	require.NoError(t, err)

	seedWorkload(t, srcDB)

	var buf bytes.Buffer
	err = srcDB.View(func(txn kv.ReadTxn) error {
		return dump.Dump(&buf, txn)
	})
	require.NoError(t, err)

	store := archive.NewLocal(t.TempDir())
	require.NoError(t, store.Put(ctx, "snap.dump", &buf))

	// A destination already holding rows in a dumped table is refused.
	dst := newLevel(t)
	dstDB, err := strata.New(dst)
	require.NoError(t, err)

	err = dstDB.Update(func(txn kv.WriteTxn) error {
		tbl, err := txn.CreateTable("members")
		if err != nil {
			return err
		}

		return tbl.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)

	rc, err := store.Open(ctx, "snap.dump")
	require.NoError(t, err)
	defer rc.Close()

	err = dstDB.Update(func(txn kv.WriteTxn) error {
		return dump.Restore(rc, txn)
	})

	var dne *dump.DestinationNotEmptyError
	require.ErrorAs(t, err, &dne)
	assert.Equal(t, []string{"members"}, dne.Tables)
}

func TestArchiveRoundTripBytes(t *testing.T) {
	ctx := context.Background()
	store := archive.NewLocal(t.TempDir())

	payload := testutil.NewRNG(7).Bytes(1 << 16)

	err := store.Put(ctx, "blobs/raw.bin", bytes.NewReader(payload))
	require.NoError(t, err)

	rc, err := store.Open(ctx, "blobs/raw.bin")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
