package badgerdb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/kv/badgerdb"
	"github.com/stratakv/strata/kv/kvtest"
)

func TestContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		store, err := badgerdb.Open(t.TempDir(), func(o *badgerdb.Options) {
			o.SyncWrites = false
		})
		require.NoError(t, err)
		return store
	})
}

func TestClosedStore(t *testing.T) {
	store, err := badgerdb.Open(t.TempDir(), func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	_, err = store.BeginRead()
	require.ErrorIs(t, err, kv.ErrStoreClosed)
	_, err = store.BeginWrite()
	require.ErrorIs(t, err, kv.ErrStoreClosed)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := badgerdb.Open(dir, func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	require.NoError(t, err)

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("persisted")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = badgerdb.Open(dir, func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	require.NoError(t, err)
	defer store.Close()

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	defer rtxn.Discard()
	rtbl, err := rtxn.OpenTable("persisted")
	require.NoError(t, err)
	v, ok, err := rtbl.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}
