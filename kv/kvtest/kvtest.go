// Package kvtest holds the contract suite every kv driver must pass.
//
// Driver test packages call Run with a factory that opens a fresh store:
//
//	kvtest.Run(t, func(t *testing.T) kv.Store {
//	    s, err := badgerdb.Open(t.TempDir())
//	    require.NoError(t, err)
//	    return s
//	})
package kvtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/kv"
)

// Factory opens a fresh, empty store for one subtest. Run closes it.
type Factory func(t *testing.T) kv.Store

// Run exercises the kv contract against the given driver.
func Run(t *testing.T, open Factory) {
	t.Run("TableRoundTrip", func(t *testing.T) { testTableRoundTrip(t, open(t)) })
	t.Run("TableRange", func(t *testing.T) { testTableRange(t, open(t)) })
	t.Run("TableLifecycle", func(t *testing.T) { testTableLifecycle(t, open(t)) })
	t.Run("TableKinds", func(t *testing.T) { testTableKinds(t, open(t)) })
	t.Run("Multimap", func(t *testing.T) { testMultimap(t, open(t)) })
	t.Run("MultimapRange", func(t *testing.T) { testMultimapRange(t, open(t)) })
	t.Run("CommitVisibility", func(t *testing.T) { testCommitVisibility(t, open(t)) })
	t.Run("SnapshotIsolation", func(t *testing.T) { testSnapshotIsolation(t, open(t)) })
}

func testTableRoundTrip(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	defer txn.Discard()

	tbl, err := txn.CreateTable("events")
	require.NoError(t, err)

	require.NoError(t, tbl.Set([]byte("a"), []byte("1")))
	require.NoError(t, tbl.Set([]byte("b"), []byte("2")))
	require.NoError(t, tbl.Set([]byte("a"), []byte("3"))) // overwrite

	v, ok, err := tbl.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("3"), v)

	_, ok, err = tbl.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	existed, err := tbl.Delete([]byte("b"))
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = tbl.Delete([]byte("b"))
	require.NoError(t, err)
	require.False(t, existed)

	require.NoError(t, txn.Commit())
}

func testTableRange(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("ordered")
	require.NoError(t, err)
	for _, k := range []string{"d", "a", "c", "b"} {
		require.NoError(t, tbl.Set([]byte(k), []byte("v"+k)))
	}
	require.NoError(t, txn.Commit())

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	defer rtxn.Discard()

	rtbl, err := rtxn.OpenTable("ordered")
	require.NoError(t, err)

	collect := func(start, end []byte) []string {
		it := rtbl.Range(start, end)
		defer it.Close()
		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
			require.Equal(t, "v"+string(it.Key()), string(it.Value()))
		}
		require.NoError(t, it.Err())
		return keys
	}

	require.Equal(t, []string{"a", "b", "c", "d"}, collect(nil, nil))
	require.Equal(t, []string{"b", "c"}, collect([]byte("b"), []byte("d")))
	require.Equal(t, []string{"c", "d"}, collect([]byte("c"), nil))
	require.Empty(t, collect([]byte("x"), nil))
}

func testTableLifecycle(t *testing.T, store kv.Store) {
	defer store.Close()

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	_, err = rtxn.OpenTable("ghost")
	require.ErrorIs(t, err, kv.ErrTableNotFound)
	rtxn.Discard()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("tmp")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("v")))

	_, err = txn.CreateTable("")
	require.ErrorIs(t, err, kv.ErrInvalidName)

	infos, err := txn.ListTables()
	require.NoError(t, err)
	require.Equal(t, []kv.TableInfo{{Name: "tmp", Kind: kv.KindTable}}, infos)

	existed, err := txn.DeleteTable("tmp")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = txn.DeleteTable("tmp")
	require.NoError(t, err)
	require.False(t, existed)

	// Recreating after delete starts empty.
	tbl, err = txn.CreateTable("tmp")
	require.NoError(t, err)
	_, ok, err := tbl.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, txn.Commit())
}

func testTableKinds(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	defer txn.Discard()

	_, err = txn.CreateTable("plain")
	require.NoError(t, err)
	_, err = txn.CreateMultimap("multi")
	require.NoError(t, err)

	_, err = txn.CreateMultimap("plain")
	require.ErrorIs(t, err, kv.ErrTableKind)
	_, err = txn.OpenTable("multi")
	require.ErrorIs(t, err, kv.ErrTableKind)
	_, err = txn.DeleteTable("multi")
	require.ErrorIs(t, err, kv.ErrTableKind)

	infos, err := txn.ListTables()
	require.NoError(t, err)
	require.Equal(t, []kv.TableInfo{
		{Name: "multi", Kind: kv.KindMultimap},
		{Name: "plain", Kind: kv.KindTable},
	}, infos)
}

func testMultimap(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	mm, err := txn.CreateMultimap("groups")
	require.NoError(t, err)

	key := []byte("g1")
	require.NoError(t, mm.Put(key, []byte("beta")))
	require.NoError(t, mm.Put(key, []byte("alpha")))
	require.NoError(t, mm.Put(key, []byte("gamma")))
	require.NoError(t, mm.Put(key, []byte("alpha"))) // duplicate, no-op
	require.NoError(t, mm.Put([]byte("g2"), []byte("delta")))

	values := func(k []byte) []string {
		it := mm.ValuesOf(k)
		defer it.Close()
		var out []string
		for it.Next() {
			require.Equal(t, string(k), string(it.Key()))
			out = append(out, string(it.Value()))
		}
		require.NoError(t, it.Err())
		return out
	}

	require.Equal(t, []string{"alpha", "beta", "gamma"}, values(key))
	require.Empty(t, values([]byte("nope")))

	existed, err := mm.Remove(key, []byte("beta"))
	require.NoError(t, err)
	require.True(t, existed)
	existed, err = mm.Remove(key, []byte("beta"))
	require.NoError(t, err)
	require.False(t, existed)
	require.Equal(t, []string{"alpha", "gamma"}, values(key))

	existed, err = mm.RemoveAll(key)
	require.NoError(t, err)
	require.True(t, existed)
	require.Empty(t, values(key))
	require.Equal(t, []string{"delta"}, values([]byte("g2")))

	require.NoError(t, txn.Commit())
}

func testMultimapRange(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	mm, err := txn.CreateMultimap("pairs")
	require.NoError(t, err)

	require.NoError(t, mm.Put([]byte("a"), []byte("1")))
	require.NoError(t, mm.Put([]byte("a"), []byte("2")))
	require.NoError(t, mm.Put([]byte("b"), []byte("3")))
	require.NoError(t, txn.Commit())

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	defer rtxn.Discard()

	rmm, err := rtxn.OpenMultimap("pairs")
	require.NoError(t, err)

	it := rmm.Range(nil, nil)
	defer it.Close()
	var pairs [][2]string
	for it.Next() {
		pairs = append(pairs, [2]string{string(it.Key()), string(it.Value())})
	}
	require.NoError(t, it.Err())
	require.Equal(t, [][2]string{{"a", "1"}, {"a", "2"}, {"b", "3"}}, pairs)

	it2 := rmm.Range([]byte("b"), nil)
	defer it2.Close()
	var keys []string
	for it2.Next() {
		keys = append(keys, string(it2.Key()))
	}
	require.NoError(t, it2.Err())
	require.Equal(t, []string{"b"}, keys)
}

func testCommitVisibility(t *testing.T, store kv.Store) {
	defer store.Close()

	// Discarded writes must not be visible.
	txn, err := store.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("vis")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("lost")))
	txn.Discard()

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	_, err = rtxn.OpenTable("vis")
	require.ErrorIs(t, err, kv.ErrTableNotFound)
	rtxn.Discard()

	// Committed writes must be visible to later transactions.
	txn, err = store.BeginWrite()
	require.NoError(t, err)
	tbl, err = txn.CreateTable("vis")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("kept")))
	require.NoError(t, txn.Commit())

	rtxn, err = store.BeginRead()
	require.NoError(t, err)
	defer rtxn.Discard()
	rtbl, err := rtxn.OpenTable("vis")
	require.NoError(t, err)
	v, ok, err := rtbl.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("kept"), v)
}

func testSnapshotIsolation(t *testing.T, store kv.Store) {
	defer store.Close()

	txn, err := store.BeginWrite()
	require.NoError(t, err)
	tbl, err := txn.CreateTable("iso")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("old")))
	require.NoError(t, txn.Commit())

	rtxn, err := store.BeginRead()
	require.NoError(t, err)
	defer rtxn.Discard()

	txn, err = store.BeginWrite()
	require.NoError(t, err)
	tbl, err = txn.CreateTable("iso")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("k"), []byte("new")))
	require.NoError(t, txn.Commit())

	// The read transaction still observes its snapshot.
	rtbl, err := rtxn.OpenTable("iso")
	require.NoError(t, err)
	v, ok, err := rtbl.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("old"), v)

	// A fresh read sees the update.
	rtxn2, err := store.BeginRead()
	require.NoError(t, err)
	defer rtxn2.Discard()
	rtbl2, err := rtxn2.OpenTable("iso")
	require.NoError(t, err)
	v, ok, err = rtbl2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("new"), v)
}
